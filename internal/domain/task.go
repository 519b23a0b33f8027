package domain

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

type TaskState string

const (
	TaskStateBacklog    TaskState = "BACKLOG"
	TaskStateInAnalysis TaskState = "IN_ANALYSIS"
	TaskStateInProgress TaskState = "IN_PROGRESS"
	TaskStateBlocked    TaskState = "BLOCKED"
	TaskStateCompleted  TaskState = "COMPLETED"
	TaskStateCancelled  TaskState = "CANCELLED"
)

// ValidTaskStates is the canonical set of task states in lifecycle order.
var ValidTaskStates = []TaskState{ //nolint:gochecknoglobals // canonical enum list
	TaskStateBacklog,
	TaskStateInAnalysis,
	TaskStateInProgress,
	TaskStateBlocked,
	TaskStateCompleted,
	TaskStateCancelled,
}

// ValidateTaskState returns true if the given state is known.
func ValidateTaskState(s TaskState) bool {
	return slices.Contains(ValidTaskStates, s)
}

type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "LOW"
	TaskPriorityMedium   TaskPriority = "MEDIUM"
	TaskPriorityHigh     TaskPriority = "HIGH"
	TaskPriorityCritical TaskPriority = "CRITICAL"
)

var ValidTaskPriorities = []TaskPriority{ //nolint:gochecknoglobals // canonical enum list
	TaskPriorityLow,
	TaskPriorityMedium,
	TaskPriorityHigh,
	TaskPriorityCritical,
}

func ValidateTaskPriority(p TaskPriority) bool {
	return slices.Contains(ValidTaskPriorities, p)
}

type Task struct {
	ID           uuid.UUID    `json:"id"`
	ProjectID    uuid.UUID    `json:"project_id"`
	DepartmentID uuid.UUID    `json:"department_id"` // denormalized from the project, read-only
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	State        TaskState    `json:"state"`
	Priority     TaskPriority `json:"priority"`
	AssigneeID   *uuid.UUID   `json:"assignee_id,omitempty"`
	DueDate      *time.Time   `json:"due_date,omitempty"`
	Version      int64        `json:"version"`
	CreatedBy    *uuid.UUID   `json:"created_by,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// TaskRepository persists tasks. Reads join the owning project so DepartmentID
// is always populated. Update and UpdateState bump Version and fail with
// ErrConflict if the stored version no longer equals t.Version.
//
// Delete is a soft delete: the task disappears from every read and its state
// history is kept. List methods return at most ListLimit tasks; a non-nil
// departmentID restricts ListByAssignee to that department.
type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Task, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*Task, error)
	ListByAssignee(ctx context.Context, assigneeID uuid.UUID, departmentID *uuid.UUID) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
	UpdateState(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}
