package models

import (
	"time"

	"github.com/ifcvalidation/bff/internal/domain/validation"
)

// ValidationRequestModel is the persistence model for a validation request
type ValidationRequestModel struct {
	BaseModel
	FileName     string     `gorm:"type:varchar(1024);not null"`
	File         string     `gorm:"type:varchar(1024);not null"`
	Size         int64      `gorm:"not null"`
	Status       string     `gorm:"type:varchar(16);not null;default:'PENDING';index"`
	StatusReason string     `gorm:"type:text;not null;default:''"`
	Progress     int        `gorm:"not null;default:0"`
	Started      *time.Time `gorm:"column:started"`
	Completed    *time.Time `gorm:"column:completed"`
	UpdatedAt    *time.Time `gorm:"column:updated;autoUpdateTime:false"`
	CreatedByID  int64      `gorm:"column:created_by_id;not null;index"`
	UpdatedByID  *int64     `gorm:"column:updated_by_id"`

	Model *ModelModel `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ValidationRequestModel) TableName() string {
	return "ifc_validation_request"
}

// ToDomain converts the persistence model to a domain ValidationRequest
func (m *ValidationRequestModel) ToDomain() *validation.ValidationRequest {
	req := &validation.ValidationRequest{
		BaseEntity:   m.BaseModel.ToDomain(),
		FileName:     m.FileName,
		File:         m.File,
		Size:         m.Size,
		Status:       validation.RequestStatus(m.Status),
		StatusReason: m.StatusReason,
		Progress:     m.Progress,
		Started:      m.Started,
		Completed:    m.Completed,
		UpdatedAt:    m.UpdatedAt,
		CreatedBy:    m.CreatedByID,
		UpdatedBy:    m.UpdatedByID,
	}
	if m.Model != nil {
		req.Model = m.Model.ToDomain()
	}
	return req
}

// ValidationRequestModelFromDomain creates a persistence model from a domain request.
// The model association is not copied; it is written by the engine.
func ValidationRequestModelFromDomain(r *validation.ValidationRequest) *ValidationRequestModel {
	m := &ValidationRequestModel{
		FileName:     r.FileName,
		File:         r.File,
		Size:         r.Size,
		Status:       string(r.Status),
		StatusReason: r.StatusReason,
		Progress:     r.Progress,
		Started:      r.Started,
		Completed:    r.Completed,
		UpdatedAt:    r.UpdatedAt,
		CreatedByID:  r.CreatedBy,
		UpdatedByID:  r.UpdatedBy,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}

// AuthoringToolModel is the persistence model for an authoring application
type AuthoringToolModel struct {
	BaseModel
	Name    string `gorm:"type:varchar(1024);not null"`
	Version string `gorm:"type:varchar(128);not null;default:''"`
}

// TableName returns the table name for GORM
func (AuthoringToolModel) TableName() string {
	return "ifc_authoring_tool"
}

// ModelModel is the persistence model for the facts extracted from an IFC file
type ModelModel struct {
	BaseModel
	RequestID          int64   `gorm:"not null;uniqueIndex"`
	ProducedByID       *int64  `gorm:"column:produced_by_id"`
	Schema             *string `gorm:"type:varchar(25)"`
	MVD                *string `gorm:"column:mvd;type:varchar(512)"`
	License            *string `gorm:"type:varchar(7)"`
	NumberOfElements   *int64
	NumberOfGeometries *int64
	NumberOfProperties *int64

	StatusSyntax            *string `gorm:"type:varchar(1)"`
	StatusSchema            *string `gorm:"type:varchar(1)"`
	StatusBSDD              *string `gorm:"column:status_bsdd;type:varchar(1)"`
	StatusMVD               *string `gorm:"column:status_mvd;type:varchar(1)"`
	StatusIDS               *string `gorm:"column:status_ids;type:varchar(1)"`
	StatusIA                *string `gorm:"column:status_ia;type:varchar(1)"`
	StatusIP                *string `gorm:"column:status_ip;type:varchar(1)"`
	StatusIndustryPractices *string `gorm:"type:varchar(1)"`
	StatusPrereq            *string `gorm:"type:varchar(1)"`

	ProducedBy *AuthoringToolModel  `gorm:"foreignKey:ProducedByID"`
	Instances  []ModelInstanceModel `gorm:"foreignKey:ModelID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ModelModel) TableName() string {
	return "ifc_model"
}

// ToDomain converts the persistence model to a domain Model
func (m *ModelModel) ToDomain() *validation.Model {
	model := &validation.Model{
		BaseEntity:              m.BaseModel.ToDomain(),
		RequestID:               m.RequestID,
		Schema:                  m.Schema,
		MVD:                     m.MVD,
		License:                 m.License,
		NumberOfElements:        m.NumberOfElements,
		NumberOfGeometries:      m.NumberOfGeometries,
		NumberOfProperties:      m.NumberOfProperties,
		StatusSyntax:            toStatus(m.StatusSyntax),
		StatusSchema:            toStatus(m.StatusSchema),
		StatusBSDD:              toStatus(m.StatusBSDD),
		StatusMVD:               toStatus(m.StatusMVD),
		StatusIDS:               toStatus(m.StatusIDS),
		StatusIA:                toStatus(m.StatusIA),
		StatusIP:                toStatus(m.StatusIP),
		StatusIndustryPractices: toStatus(m.StatusIndustryPractices),
		StatusPrereq:            toStatus(m.StatusPrereq),
	}
	if m.ProducedBy != nil {
		model.ProducedBy = &validation.AuthoringTool{
			ID:      m.ProducedBy.ID,
			Name:    m.ProducedBy.Name,
			Version: m.ProducedBy.Version,
		}
	}
	return model
}

// StatusColumns returns the status columns of a domain model keyed by column name
func StatusColumns(m *validation.Model) map[string]any {
	return map[string]any{
		"status_syntax":             fromStatus(m.StatusSyntax),
		"status_schema":             fromStatus(m.StatusSchema),
		"status_bsdd":               fromStatus(m.StatusBSDD),
		"status_mvd":                fromStatus(m.StatusMVD),
		"status_ids":                fromStatus(m.StatusIDS),
		"status_ia":                 fromStatus(m.StatusIA),
		"status_ip":                 fromStatus(m.StatusIP),
		"status_industry_practices": fromStatus(m.StatusIndustryPractices),
		"status_prereq":             fromStatus(m.StatusPrereq),
	}
}

func toStatus(s *string) *validation.ModelStatus {
	if s == nil {
		return nil
	}
	status := validation.ModelStatus(*s)
	return &status
}

func fromStatus(s *validation.ModelStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

// ModelInstanceModel is the persistence model for an IFC entity referenced by outcomes
type ModelInstanceModel struct {
	BaseModel
	ModelID    int64  `gorm:"not null;index"`
	StepfileID int64  `gorm:"column:stepfile_id;not null"`
	IfcType    string `gorm:"type:varchar(255);not null"`
}

// TableName returns the table name for GORM
func (ModelInstanceModel) TableName() string {
	return "ifc_model_instance"
}

// ToDomain converts the persistence model to a domain ModelInstance
func (m *ModelInstanceModel) ToDomain() *validation.ModelInstance {
	return &validation.ModelInstance{
		BaseEntity: m.BaseModel.ToDomain(),
		ModelID:    m.ModelID,
		StepfileID: m.StepfileID,
		IfcType:    m.IfcType,
	}
}

// ValidationTaskModel is the persistence model for one engine step
type ValidationTaskModel struct {
	BaseModel
	RequestID  int64      `gorm:"not null;index:idx_task_request_type"`
	Type       string     `gorm:"type:varchar(32);not null;index:idx_task_request_type"`
	Status     string     `gorm:"type:varchar(16);not null;default:'PENDING'"`
	ProcessCmd string     `gorm:"type:text;not null;default:''"`
	Started    *time.Time `gorm:"column:started"`
	Ended      *time.Time `gorm:"column:ended"`

	Request  *ValidationRequestModel  `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
	Outcomes []ValidationOutcomeModel `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ValidationTaskModel) TableName() string {
	return "ifc_validation_task"
}

// ToDomain converts the persistence model to a domain ValidationTask
func (m *ValidationTaskModel) ToDomain() *validation.ValidationTask {
	return &validation.ValidationTask{
		BaseEntity: m.BaseModel.ToDomain(),
		RequestID:  m.RequestID,
		Type:       validation.TaskType(m.Type),
		Status:     validation.TaskStatus(m.Status),
		ProcessCmd: m.ProcessCmd,
		Started:    m.Started,
		Ended:      m.Ended,
	}
}

// ValidationOutcomeModel is the persistence model for one finding of an engine step
type ValidationOutcomeModel struct {
	BaseModel
	TaskID         int64  `gorm:"column:validation_task_id;not null;index"`
	InstanceID     *int64 `gorm:"column:instance_id"`
	Feature        string `gorm:"type:text;not null;default:''"`
	FeatureVersion *int
	Severity       int     `gorm:"not null"`
	OutcomeCode    string  `gorm:"type:varchar(10);not null;default:''"`
	Expected       *string `gorm:"type:text"`
	Observed       *string `gorm:"type:text"`

	Instance *ModelInstanceModel `gorm:"foreignKey:InstanceID;constraint:OnDelete:SET NULL"`
}

// TableName returns the table name for GORM
func (ValidationOutcomeModel) TableName() string {
	return "ifc_validation_outcome"
}

// ToDomain converts the persistence model to a domain ValidationOutcome
func (m *ValidationOutcomeModel) ToDomain() *validation.ValidationOutcome {
	o := &validation.ValidationOutcome{
		BaseEntity:     m.BaseModel.ToDomain(),
		TaskID:         m.TaskID,
		InstanceID:     m.InstanceID,
		Feature:        m.Feature,
		FeatureVersion: m.FeatureVersion,
		Severity:       validation.OutcomeSeverity(m.Severity),
		OutcomeCode:    m.OutcomeCode,
		Expected:       m.Expected,
		Observed:       m.Observed,
	}
	if m.Instance != nil {
		o.Instance = m.Instance.ToDomain()
	}
	return o
}
