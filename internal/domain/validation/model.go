package validation

import "github.com/ifcvalidation/bff/internal/domain/shared"

// ModelStatus is the single-letter outcome code stored per validation aspect
type ModelStatus string

const (
	ModelStatusValid         ModelStatus = "v"
	ModelStatusInvalid       ModelStatus = "i"
	ModelStatusNotValidated  ModelStatus = "n"
	ModelStatusWarning       ModelStatus = "w"
	ModelStatusNotApplicable ModelStatus = "-"
)

// PendingStatus is what the dashboard shows for an aspect that has no result yet
const PendingStatus = "p"

// NotAvailable is the placeholder the report uses for missing text attributes
const NotAvailable = "-"

// AuthoringTool is the application that produced an IFC file
type AuthoringTool struct {
	ID      int64
	Name    string
	Version string
}

// Model holds the facts the validation engine extracted from a file.
// Every status is nil until the matching check has run.
type Model struct {
	shared.BaseEntity
	RequestID          int64
	ProducedBy         *AuthoringTool
	Schema             *string
	MVD                *string
	License            *string
	NumberOfElements   *int64
	NumberOfGeometries *int64
	NumberOfProperties *int64

	StatusSyntax            *ModelStatus
	StatusSchema            *ModelStatus
	StatusBSDD              *ModelStatus
	StatusMVD               *ModelStatus
	StatusIDS               *ModelStatus
	StatusIA                *ModelStatus
	StatusIP                *ModelStatus
	StatusIndustryPractices *ModelStatus
	StatusPrereq            *ModelStatus
}

// ResetStatus marks every check as not validated
func (m *Model) ResetStatus() {
	for _, s := range m.statuses() {
		v := ModelStatusNotValidated
		*s = &v
	}
}

func (m *Model) statuses() []**ModelStatus {
	return []**ModelStatus{
		&m.StatusSyntax,
		&m.StatusSchema,
		&m.StatusBSDD,
		&m.StatusMVD,
		&m.StatusIDS,
		&m.StatusIA,
		&m.StatusIP,
		&m.StatusIndustryPractices,
		&m.StatusPrereq,
	}
}

// IsSchemaValid reports whether the schema check passed
func (m *Model) IsSchemaValid() bool {
	return m.StatusSchema != nil && *m.StatusSchema == ModelStatusValid
}

// AuthoringApplication returns the producing application name, if known
func (m *Model) AuthoringApplication() *string {
	if m == nil || m.ProducedBy == nil {
		return nil
	}
	name := m.ProducedBy.Name
	return &name
}

// StatusOrPending renders a status for the dashboard
func StatusOrPending(s *ModelStatus) string {
	if s == nil {
		return PendingStatus
	}
	return string(*s)
}

// TextOrNotAvailable renders an optional text attribute for the report
func TextOrNotAvailable(s *string) string {
	if s == nil {
		return NotAvailable
	}
	return *s
}
