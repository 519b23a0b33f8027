package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StateHistoryEntry is an immutable audit record of one accepted task state
// change. OldState is nil only for the creation entry.
type StateHistoryEntry struct {
	ID           uuid.UUID  `json:"id"`
	Seq          int64      `json:"seq"`
	TaskID       uuid.UUID  `json:"task_id"`
	DepartmentID uuid.UUID  `json:"department_id"` // joined from the task's project, read-only
	OldState     *TaskState `json:"old_state"`
	NewState     TaskState  `json:"new_state"`
	Reason       *string    `json:"reason"`
	ChangedAt    time.Time  `json:"changed_at"`
	ChangedBy    *uuid.UUID `json:"changed_by"`
}

// StateHistoryRepository is append-only. All list methods return newest
// first; entries sharing a timestamp are ordered by insertion (Seq).
//
// The query methods take a department scope: nil lists every department,
// otherwise only entries of tasks in that department are returned. At most
// ListLimit entries are returned, counted after the scope is applied.
type StateHistoryRepository interface {
	Append(ctx context.Context, e *StateHistoryEntry) error
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*StateHistoryEntry, error)
	ListByChangedBy(ctx context.Context, actorID uuid.UUID, departmentID *uuid.UUID) ([]*StateHistoryEntry, error)
	ListByOldState(ctx context.Context, state TaskState, departmentID *uuid.UUID) ([]*StateHistoryEntry, error)
	ListByNewState(ctx context.Context, state TaskState, departmentID *uuid.UUID) ([]*StateHistoryEntry, error)
	ListByTimeRange(ctx context.Context, from, to time.Time, departmentID *uuid.UUID) ([]*StateHistoryEntry, error)
}
