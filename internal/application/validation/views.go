package validation

import (
	"io"

	"github.com/ifcvalidation/bff/internal/domain/identity"
	"github.com/ifcvalidation/bff/internal/domain/validation"
)

// WaitingZonePath is where inactive accounts are sent
const WaitingZonePath = "/waiting_zone"

// DashboardPath is the frontend landing page after uploads and failed lookups
const DashboardPath = "/dashboard"

// MeView is the payload of the current user endpoint
type MeView struct {
	UserData    MeUserData  `json:"user_data"`
	SandboxInfo SandboxInfo `json:"sandbox_info"`
	Redirect    *string     `json:"redirect"`
}

// MeUserData describes the signed-in account
type MeUserData struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	FamilyName string `json:"family_name"`
	GivenName  string `json:"given_name"`
	Name       string `json:"name"`
	IsActive   bool   `json:"is_active"`
}

// SandboxInfo is always empty outside sandbox deployments
type SandboxInfo struct {
	PRTitle  *string `json:"pr_title"`
	CommitID *string `json:"commit_id"`
}

// ToMeView projects a user onto the legacy me payload
func ToMeView(u *identity.User) MeView {
	view := MeView{
		UserData: MeUserData{
			Sub:        u.Username,
			Email:      u.Email,
			FamilyName: u.LastName,
			GivenName:  u.FirstName,
			Name:       u.FullName(),
			IsActive:   u.IsActive,
		},
	}
	if !u.IsActive {
		redirect := WaitingZonePath
		view.Redirect = &redirect
	}
	return view
}

// ModelSummary is one dashboard row
type ModelSummary struct {
	ID                   int64   `json:"id"`
	Code                 int64   `json:"code"`
	FileName             string  `json:"filename"`
	UserID               int64   `json:"user_id"`
	Status               string  `json:"status"`
	Progress             int     `json:"progress"`
	Date                 string  `json:"date"`
	NumberOfElements     *int64  `json:"number_of_elements"`
	NumberOfGeometries   *int64  `json:"number_of_geometries"`
	NumberOfProperties   *int64  `json:"number_of_properties"`
	AuthoringApplication *string `json:"authoring_application"`
	ModelStatuses
}

// ModelStatuses are the per-check status codes shared by the dashboard and the report
type ModelStatuses struct {
	StatusSyntax string `json:"status_syntax"`
	StatusSchema string `json:"status_schema"`
	StatusBSDD   string `json:"status_bsdd"`
	StatusMVD    string `json:"status_mvd"`
	StatusIDS    string `json:"status_ids"`
	StatusIA     string `json:"status_ia"`
	StatusIP     string `json:"status_ip"`
	StatusInd    string `json:"status_ind"`
	StatusPrereq string `json:"status_prereq"`
}

// ModelPage is a window of the user's requests plus their total count
type ModelPage struct {
	Models []ModelSummary `json:"models"`
	Count  int64          `json:"count"`
}

func toModelStatuses(m *validation.Model) ModelStatuses {
	if m == nil {
		m = &validation.Model{}
	}
	return ModelStatuses{
		StatusSyntax: validation.StatusOrPending(m.StatusSyntax),
		StatusSchema: validation.StatusOrPending(m.StatusSchema),
		StatusBSDD:   validation.StatusOrPending(m.StatusBSDD),
		StatusMVD:    validation.StatusOrPending(m.StatusMVD),
		StatusIDS:    validation.StatusOrPending(m.StatusIDS),
		StatusIA:     validation.StatusOrPending(m.StatusIA),
		StatusIP:     validation.StatusOrPending(m.StatusIP),
		StatusInd:    validation.StatusOrPending(m.StatusIndustryPractices),
		StatusPrereq: validation.StatusOrPending(m.StatusPrereq),
	}
}

// ToModelSummary projects a request and its model onto a dashboard row
func ToModelSummary(r *validation.ValidationRequest) ModelSummary {
	s := ModelSummary{
		ID:                   r.ID,
		Code:                 r.ID,
		FileName:             r.FileName,
		UserID:               r.CreatedBy,
		Status:               string(r.Status),
		Progress:             r.DisplayProgress(),
		Date:                 r.DisplayDate(),
		AuthoringApplication: r.Model.AuthoringApplication(),
		ModelStatuses:        toModelStatuses(r.Model),
	}
	if r.Model != nil {
		s.NumberOfElements = r.Model.NumberOfElements
		s.NumberOfGeometries = r.Model.NumberOfGeometries
		s.NumberOfProperties = r.Model.NumberOfProperties
	}
	return s
}

// Report is the detailed validation report of one request
type Report struct {
	Instances map[int64]InstanceView `json:"instances"`
	Model     ReportModel            `json:"model"`
	Results   ReportResults          `json:"results"`
	Tasks     ReportTasks            `json:"tasks"`
}

// InstanceView identifies a model instance referenced by an outcome
type InstanceView struct {
	GUID string `json:"guid"`
	Type string `json:"type"`
}

// ReportModel is the file summary shown at the top of the report
type ReportModel struct {
	ID                   int64   `json:"id"`
	Code                 int64   `json:"code"`
	FileName             string  `json:"filename"`
	UserID               int64   `json:"user_id"`
	Progress             int     `json:"progress"`
	Date                 string  `json:"date"`
	License              string  `json:"license"`
	NumberOfElements     *int64  `json:"number_of_elements"`
	NumberOfGeometries   *int64  `json:"number_of_geometries"`
	NumberOfProperties   *int64  `json:"number_of_properties"`
	AuthoringApplication string  `json:"authoring_application"`
	Schema               string  `json:"schema"`
	Size                 int64   `json:"size"`
	MVD                  string  `json:"mvd"`
	Deleted              int     `json:"deleted"`
	CommitID             *string `json:"commit_id"`
	ModelStatuses
}

// SchemaResult is one schema finding
type SchemaResult struct {
	ID             int64   `json:"id"`
	Attribute      string  `json:"attribute"`
	ConstraintType string  `json:"constraint_type"`
	InstanceID     *int64  `json:"instance_id"`
	Msg            *string `json:"msg"`
	TaskID         int64   `json:"task_id"`
}

// GherkinResult is one rule finding
type GherkinResult struct {
	ID         int64   `json:"id"`
	Feature    string  `json:"feature"`
	FeatureURL *int    `json:"feature_url"`
	Step       string  `json:"step"`
	InstanceID *int64  `json:"instance_id"`
	Message    string  `json:"message"`
	TaskID     int64   `json:"task_id"`
	Msg        *string `json:"msg"`
}

// ReportResults groups findings per check. Syntax and bSDD findings are not
// reported through this endpoint and stay empty.
type ReportResults struct {
	SyntaxResult []any          `json:"syntax_result"`
	SchemaResult []SchemaResult `json:"schema_result"`
	BSDDResults  []any          `json:"bsdd_results"`
}

// GherkinTaskView wraps rule results the way the frontend reads them
type GherkinTaskView struct {
	Results []GherkinResult `json:"results"`
}

// ReportTasks repeats the rule results under both task keys the frontend reads
type ReportTasks struct {
	SyntaxValidationTask            struct{}        `json:"syntax_validation_task"`
	SchemaValidationTask            struct{}        `json:"schema_validation_task"`
	BSDDValidationTask              []any           `json:"bsdd_validation_task"`
	GherkinRulesValidationTask      GherkinTaskView `json:"gherkin_rules_validation_task"`
	IndustryPracticesValidationTask GherkinTaskView `json:"industry_practices_validation_task"`
}

// ToReportModel projects a request and its model onto the report summary
func ToReportModel(r *validation.ValidationRequest) ReportModel {
	m := r.Model
	rm := ReportModel{
		ID:                   r.ID,
		Code:                 r.ID,
		FileName:             r.FileName,
		UserID:               r.CreatedBy,
		Progress:             r.Progress,
		Date:                 r.DisplayDate(),
		License:              validation.NotAvailable,
		AuthoringApplication: validation.TextOrNotAvailable(m.AuthoringApplication()),
		Schema:               validation.NotAvailable,
		Size:                 r.Size,
		MVD:                  validation.NotAvailable,
		ModelStatuses:        toModelStatuses(m),
	}
	if m != nil {
		rm.License = validation.TextOrNotAvailable(m.License)
		rm.Schema = validation.TextOrNotAvailable(m.Schema)
		rm.MVD = validation.TextOrNotAvailable(m.MVD)
		rm.NumberOfElements = m.NumberOfElements
		rm.NumberOfGeometries = m.NumberOfGeometries
		rm.NumberOfProperties = m.NumberOfProperties
	}
	return rm
}

// UploadFile is one file of a multipart upload
type UploadFile struct {
	Name string
	Size int64 // as declared by the multipart header
	Open func() (io.ReadCloser, error)
}

// UploadResult lists the requests created by an upload
type UploadResult struct {
	RequestIDs []int64
}

// Download is a stored file ready to be streamed back to its owner
type Download struct {
	FileName string
	Size     int64
	Content  io.ReadCloser
}
