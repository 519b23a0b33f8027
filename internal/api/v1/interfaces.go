package v1

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/taskhub/internal/domain"
	"github.com/gosuda/taskhub/internal/service"
)

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, err error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}

// DepartmentService is satisfied by *service.DepartmentService.
type DepartmentService interface {
	Create(ctx context.Context, actor domain.Actor, name, description string) (*domain.Department, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Department, error)
	List(ctx context.Context, actor domain.Actor) ([]*domain.Department, error)
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, name, description *string) (*domain.Department, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

// ProjectService is satisfied by *service.ProjectService.
type ProjectService interface {
	Create(ctx context.Context, actor domain.Actor, in service.CreateProjectInput) (*domain.Project, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Project, error)
	List(ctx context.Context, actor domain.Actor, departmentID *uuid.UUID) ([]*domain.Project, error)
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in service.UpdateProjectInput) (*domain.Project, error)
	ChangeStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, status domain.ProjectStatus) (*domain.Project, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	AddMember(ctx context.Context, actor domain.Actor, projectID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, actor domain.Actor, projectID, userID uuid.UUID) error
	ListMembers(ctx context.Context, actor domain.Actor, projectID uuid.UUID) ([]uuid.UUID, error)
}

// TaskService is satisfied by *service.TaskService.
type TaskService interface {
	Create(ctx context.Context, actor domain.Actor, in service.CreateTaskInput) (*domain.Task, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Task, error)
	ListByProject(ctx context.Context, actor domain.Actor, projectID uuid.UUID) ([]*domain.Task, error)
	ListByAssignee(ctx context.Context, actor domain.Actor, assigneeID uuid.UUID) ([]*domain.Task, error)
	Board(ctx context.Context, actor domain.Actor, projectID uuid.UUID) (*domain.Project, []*domain.Task, error)
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in service.UpdateTaskInput) (*domain.Task, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	Assign(ctx context.Context, actor domain.Actor, id, assigneeID uuid.UUID, version *int64) (*domain.Task, error)
	Unassign(ctx context.Context, actor domain.Actor, id uuid.UUID, version *int64) (*domain.Task, error)
	ChangeState(ctx context.Context, actor domain.Actor, id uuid.UUID, next domain.TaskState, reason string, version *int64) (*domain.Task, error)
	Transitions(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Task, []domain.TaskState, error)
}

// HistoryService is the read side of task state history; *service.TaskService
// satisfies it.
type HistoryService interface {
	History(ctx context.Context, actor domain.Actor, taskID uuid.UUID) ([]*domain.StateHistoryEntry, error)
	HistoryByActor(ctx context.Context, actor domain.Actor, changedBy uuid.UUID) ([]*domain.StateHistoryEntry, error)
	HistoryByOldState(ctx context.Context, actor domain.Actor, state domain.TaskState) ([]*domain.StateHistoryEntry, error)
	HistoryByNewState(ctx context.Context, actor domain.Actor, state domain.TaskState) ([]*domain.StateHistoryEntry, error)
	HistoryInRange(ctx context.Context, actor domain.Actor, from, to time.Time) ([]*domain.StateHistoryEntry, error)
}

// UserService is satisfied by *service.UserService.
type UserService interface {
	Create(ctx context.Context, actor domain.Actor, in service.CreateUserInput) (*domain.User, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.User, error)
	List(ctx context.Context, actor domain.Actor) ([]*domain.User, error)
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in service.UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}
