package validation

import (
	"encoding/json"
	"fmt"

	"github.com/ifcvalidation/bff/internal/domain/shared"
)

// OutcomeSeverity ranks a rule outcome. Higher is worse.
type OutcomeSeverity int

const (
	SeverityNotApplicable OutcomeSeverity = 0
	SeverityExecuted      OutcomeSeverity = 1
	SeverityPassed        OutcomeSeverity = 2
	SeverityWarning       OutcomeSeverity = 3
	SeverityError         OutcomeSeverity = 4
)

var severityLabels = map[OutcomeSeverity]string{
	SeverityNotApplicable: "N/A",
	SeverityExecuted:      "Executed",
	SeverityPassed:        "Passed",
	SeverityWarning:       "Warning",
	SeverityError:         "Error",
}

// Display returns the human label of the severity
func (s OutcomeSeverity) Display() string {
	if label, ok := severityLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("%d", int(s))
}

// ModelInstance is an entity of the IFC file an outcome points at
type ModelInstance struct {
	shared.BaseEntity
	ModelID    int64
	StepfileID int64
	IfcType    string
}

// GUID renders the instance reference the way the report shows it
func (i *ModelInstance) GUID() string {
	return fmt.Sprintf("#%d", i.StepfileID)
}

// ValidationOutcome is one finding of an engine step
type ValidationOutcome struct {
	shared.BaseEntity
	TaskID         int64
	InstanceID     *int64
	Instance       *ModelInstance
	Feature        string
	FeatureVersion *int
	Severity       OutcomeSeverity
	OutcomeCode    string
	Expected       *string
	Observed       *string
}

// SchemaFeature is the structured feature payload of schema outcomes
type SchemaFeature struct {
	Attribute string `json:"attribute"`
	Type      string `json:"type"`
}

// ParseSchemaFeature decodes the JSON feature written by the schema step
func (o *ValidationOutcome) ParseSchemaFeature() (SchemaFeature, error) {
	var f SchemaFeature
	if err := json.Unmarshal([]byte(o.Feature), &f); err != nil {
		return SchemaFeature{}, shared.ErrInvalidInput.Wrap(fmt.Errorf("outcome %d feature: %w", o.ID, err))
	}
	return f, nil
}

// UIMessage is the one-line summary the dashboard shows for the outcome
func (o *ValidationOutcome) UIMessage() string {
	switch o.Severity {
	case SeverityPassed:
		return "Rule passed"
	case SeverityExecuted:
		return "Rule executed"
	case SeverityNotApplicable:
		return "Rule not applicable"
	}
	if nonEmpty(o.Expected) || nonEmpty(o.Observed) {
		return fmt.Sprintf("Expected: %s - Observed: %s", textOrNone(o.Expected), textOrNone(o.Observed))
	}
	return "-"
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}

// textOrNone mirrors how the legacy backend printed missing values
func textOrNone(s *string) string {
	if s == nil {
		return "None"
	}
	return *s
}
