package domain

import (
	"time"

	"github.com/google/uuid"
)

type BoardEventType string

const (
	BoardEventTaskCreated  BoardEventType = "task_created"
	BoardEventTaskUpdated  BoardEventType = "task_updated"
	BoardEventTaskMoved    BoardEventType = "task_moved"
	BoardEventTaskDeleted  BoardEventType = "task_deleted"
	BoardEventTaskAssigned BoardEventType = "task_assigned"
)

// BoardEvent is a real-time board update, published per project after the
// mutation commits.
type BoardEvent struct {
	Type         BoardEventType `json:"type"`
	DepartmentID uuid.UUID      `json:"department_id"`
	ProjectID    uuid.UUID      `json:"project_id"`
	TaskID       uuid.UUID      `json:"task_id"`
	ActorID      uuid.UUID      `json:"actor_id"`
	Task         *Task          `json:"task,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}
