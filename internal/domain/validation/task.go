package validation

import (
	"time"

	"github.com/ifcvalidation/bff/internal/domain/shared"
)

// TaskType identifies one validation step run by the engine
type TaskType string

const (
	TaskTypeSyntax             TaskType = "SYNTAX"
	TaskTypeSchema             TaskType = "SCHEMA"
	TaskTypeMVD                TaskType = "MVD"
	TaskTypeBSDD               TaskType = "BSDD"
	TaskTypeNormativeIA        TaskType = "NORMATIVE_IA"
	TaskTypeNormativeIP        TaskType = "NORMATIVE_IP"
	TaskTypePrerequisites      TaskType = "PREREQUISITES"
	TaskTypeIndustryPractices  TaskType = "INDUSTRY_PRACTICES"
	TaskTypeInstanceCompletion TaskType = "INSTANCE_COMPLETION"
)

// GherkinTaskTypes are the rule-based steps whose outcomes are merged into
// one list on the report, in this order.
var GherkinTaskTypes = []TaskType{
	TaskTypeNormativeIA,
	TaskTypeNormativeIP,
	TaskTypePrerequisites,
	TaskTypeIndustryPractices,
}

// TaskStatus is the state of a single engine step
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusInitiated TaskStatus = "INITIATED"
	TaskStatusCompleted TaskStatus = "COMPLETED"
	TaskStatusFailed    TaskStatus = "FAILED"
	TaskStatusSkipped   TaskStatus = "SKIPPED"
)

// ValidationTask is one engine step executed for a request
type ValidationTask struct {
	shared.BaseEntity
	RequestID  int64
	Type       TaskType
	Status     TaskStatus
	ProcessCmd string
	Started    *time.Time
	Ended      *time.Time
}
