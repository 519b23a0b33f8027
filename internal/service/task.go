package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/taskhub/internal/authz"
	"github.com/gosuda/taskhub/internal/domain"
)

type TaskService struct {
	base
	history HistoryRecorder
}

func NewTaskService(store DataStore, opts ...Option) *TaskService {
	b := newBase(store, opts)
	return &TaskService{base: b, history: NewHistoryRecorder(b.now)}
}

type CreateTaskInput struct {
	ProjectID   uuid.UUID
	Title       string
	Description string
	Priority    domain.TaskPriority // defaults to MEDIUM
	AssigneeID  *uuid.UUID
	DueDate     *time.Time
}

// UpdateTaskInput carries a partial update; nil fields are left untouched.
// A non-nil Version must equal the stored version.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Priority     *domain.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
	Version      *int64
}

// Create adds a task in BACKLOG and records the nil -> BACKLOG entry
// attributed to the creating actor.
func (s *TaskService) Create(ctx context.Context, actor domain.Actor, in CreateTaskInput) (*domain.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("service.TaskService.Create: title is required: %w", domain.ErrValidation)
	}
	priority := in.Priority
	if priority == "" {
		priority = domain.TaskPriorityMedium
	}
	if !domain.ValidateTaskPriority(priority) {
		return nil, fmt.Errorf("service.TaskService.Create: unknown priority %q: %w", priority, domain.ErrValidation)
	}

	var task *domain.Task
	err := s.store.InTx(ctx, func(tx domain.Repositories) error {
		project, err := tx.Projects().GetByID(ctx, in.ProjectID)
		if err != nil {
			return fmt.Errorf("project %s: %w", in.ProjectID, err)
		}
		if err := authz.Authorize(actor, authz.ActionManageTask, authz.NewTaskResource(project)); err != nil {
			return err
		}
		if in.AssigneeID != nil {
			if err := requireMember(ctx, tx, project.ID, *in.AssigneeID); err != nil {
				return err
			}
		}

		now := s.now()
		createdBy := actor.ID
		task = &domain.Task{
			ID:           uuid.New(),
			ProjectID:    project.ID,
			DepartmentID: project.DepartmentID,
			Title:        title,
			Description:  in.Description,
			State:        domain.TaskStateBacklog,
			Priority:     priority,
			AssigneeID:   in.AssigneeID,
			DueDate:      in.DueDate,
			Version:      1,
			CreatedBy:    &createdBy,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Tasks().Create(ctx, task); err != nil {
			return err
		}
		_, err = s.history.Record(ctx, tx.History(), task.ID, nil, domain.TaskStateBacklog, "", &createdBy)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service.TaskService.Create: %w", err)
	}

	s.audit(ctx, actor, "task.create", "task", task.ID, map[string]any{"project_id": task.ProjectID, "title": task.Title})
	s.publish(ctx, actor, domain.BoardEventTaskCreated, task)
	s.notify(ctx, actor, task.AssigneeID, fmt.Sprintf("You were assigned to task %q", task.Title))
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Task, error) {
	task, err := s.store.Tasks().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.TaskService.Get: task %s: %w", id, err)
	}
	if err := authz.Authorize(actor, authz.ActionViewTask, authz.TaskResource(task)); err != nil {
		return nil, fmt.Errorf("service.TaskService.Get: %w", err)
	}
	return task, nil
}

func (s *TaskService) ListByProject(ctx context.Context, actor domain.Actor, projectID uuid.UUID) ([]*domain.Task, error) {
	_, tasks, err := s.Board(ctx, actor, projectID)
	if err != nil {
		return nil, fmt.Errorf("service.TaskService.ListByProject: %w", err)
	}
	return tasks, nil
}

// Board returns the project together with its tasks, provided the actor may
// view tasks in the project's department.
func (s *TaskService) Board(ctx context.Context, actor domain.Actor, projectID uuid.UUID) (*domain.Project, []*domain.Task, error) {
	project, err := s.store.Projects().GetByID(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("service.TaskService.Board: project %s: %w", projectID, err)
	}
	if err := authz.Authorize(actor, authz.ActionViewTask, authz.NewTaskResource(project)); err != nil {
		return nil, nil, fmt.Errorf("service.TaskService.Board: %w", err)
	}
	tasks, err := s.store.Tasks().ListByProject(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("service.TaskService.Board: %w", err)
	}
	return project, tasks, nil
}

// ListByAssignee returns the assignee's tasks the actor is allowed to see.
func (s *TaskService) ListByAssignee(ctx context.Context, actor domain.Actor, assigneeID uuid.UUID) ([]*domain.Task, error) {
	dep, ok := authz.ViewScope(actor)
	if !ok {
		return []*domain.Task{}, nil
	}
	tasks, err := s.store.Tasks().ListByAssignee(ctx, assigneeID, dep)
	if err != nil {
		return nil, fmt.Errorf("service.TaskService.ListByAssignee: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in UpdateTaskInput) (*domain.Task, error) {
	var task *domain.Task
	err := s.store.InTx(ctx, func(tx domain.Repositories) error {
		t, err := tx.Tasks().GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("task %s: %w", id, err)
		}
		if err := authz.Authorize(actor, authz.ActionManageTask, authz.TaskResource(t)); err != nil {
			return err
		}
		if err := checkVersion(t, in.Version); err != nil {
			return err
		}
		if err := applyTaskUpdate(t, in); err != nil {
			return err
		}
		t.UpdatedAt = s.now()
		if err := tx.Tasks().Update(ctx, t); err != nil {
			return err
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.TaskService.Update: %w", err)
	}

	s.audit(ctx, actor, "task.update", "task", task.ID, nil)
	s.publish(ctx, actor, domain.BoardEventTaskUpdated, task)
	return task, nil
}

func applyTaskUpdate(t *domain.Task, in UpdateTaskInput) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return fmt.Errorf("task %s: title is required: %w", t.ID, domain.ErrValidation)
		}
		t.Title = title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Priority != nil {
		if !domain.ValidateTaskPriority(*in.Priority) {
			return fmt.Errorf("task %s: unknown priority %q: %w", t.ID, *in.Priority, domain.ErrValidation)
		}
		t.Priority = *in.Priority
	}
	switch {
	case in.ClearDueDate:
		t.DueDate = nil
	case in.DueDate != nil:
		due := *in.DueDate
		t.DueDate = &due
	}
	return nil
}

// Delete soft-deletes the task. Its state history is kept and stays
// queryable through the history filters.
func (s *TaskService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	var task *domain.Task
	err := s.store.InTx(ctx, func(tx domain.Repositories) error {
		t, err := tx.Tasks().GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("task %s: %w", id, err)
		}
		if err := authz.Authorize(actor, authz.ActionManageTask, authz.TaskResource(t)); err != nil {
			return err
		}
		task = t
		return tx.Tasks().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("service.TaskService.Delete: %w", err)
	}

	s.audit(ctx, actor, "task.delete", "task", task.ID, map[string]any{"project_id": task.ProjectID})
	s.publish(ctx, actor, domain.BoardEventTaskDeleted, task)
	return nil
}

// Assign sets the task's assignee. The assignee must be a member of the
// task's project.
func (s *TaskService) Assign(ctx context.Context, actor domain.Actor, id, assigneeID uuid.UUID, version *int64) (*domain.Task, error) {
	task, err := s.setAssignee(ctx, actor, id, &assigneeID, version)
	if err != nil {
		return nil, fmt.Errorf("service.TaskService.Assign: %w", err)
	}

	s.audit(ctx, actor, "task.assign", "task", task.ID, map[string]any{"assignee_id": assigneeID})
	s.publish(ctx, actor, domain.BoardEventTaskAssigned, task)
	s.notify(ctx, actor, task.AssigneeID, fmt.Sprintf("You were assigned to task %q", task.Title))
	return task, nil
}

func (s *TaskService) Unassign(ctx context.Context, actor domain.Actor, id uuid.UUID, version *int64) (*domain.Task, error) {
	task, err := s.setAssignee(ctx, actor, id, nil, version)
	if err != nil {
		return nil, fmt.Errorf("service.TaskService.Unassign: %w", err)
	}

	s.audit(ctx, actor, "task.unassign", "task", task.ID, nil)
	s.publish(ctx, actor, domain.BoardEventTaskAssigned, task)
	return task, nil
}

func (s *TaskService) setAssignee(ctx context.Context, actor domain.Actor, id uuid.UUID, assigneeID *uuid.UUID, version *int64) (*domain.Task, error) {
	var task *domain.Task
	err := s.store.InTx(ctx, func(tx domain.Repositories) error {
		t, err := tx.Tasks().GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("task %s: %w", id, err)
		}
		if err := authz.Authorize(actor, authz.ActionManageTask, authz.TaskResource(t)); err != nil {
			return err
		}
		if err := checkVersion(t, version); err != nil {
			return err
		}
		if assigneeID != nil {
			if err := requireMember(ctx, tx, t.ProjectID, *assigneeID); err != nil {
				return err
			}
		}
		t.AssigneeID = assigneeID
		t.UpdatedAt = s.now()
		if err := tx.Tasks().Update(ctx, t); err != nil {
			return err
		}
		task = t
		return nil
	})
	return task, err
}

func requireMember(ctx context.Context, tx domain.Repositories, projectID, userID uuid.UUID) error {
	if _, err := tx.Users().GetByID(ctx, userID); err != nil {
		return fmt.Errorf("assignee %s: %w", userID, err)
	}
	ok, err := tx.Projects().IsMember(ctx, projectID, userID)
	if err != nil {
		return fmt.Errorf("assignee %s: %w", userID, err)
	}
	if !ok {
		return fmt.Errorf("assignee %s is not a member of project %s: %w", userID, projectID, domain.ErrValidation)
	}
	return nil
}

// ChangeState moves a task to next. The order is fixed: permission, then
// transition rules, then the write and its history entry in the same
// transaction. A request for the current state is accepted and changes
// nothing.
func (s *TaskService) ChangeState(ctx context.Context, actor domain.Actor, id uuid.UUID, next domain.TaskState, reason string, version *int64) (*domain.Task, error) {
	var (
		task    *domain.Task
		from    domain.TaskState
		changed bool
	)
	err := s.store.InTx(ctx, func(tx domain.Repositories) error {
		t, err := tx.Tasks().GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("task %s: %w", id, err)
		}
		if err := authz.Authorize(actor, authz.ActionUpdateTaskState, authz.TaskResource(t)); err != nil {
			return err
		}
		if err := domain.ValidateTransition(t.State, next, reason); err != nil {
			return &domain.TransitionError{TaskID: t.ID, From: t.State, To: next, Err: err}
		}
		if err := checkVersion(t, version); err != nil {
			return err
		}

		task = t
		from = t.State
		if from == next {
			return nil
		}

		t.State = next
		t.UpdatedAt = s.now()
		if err := tx.Tasks().UpdateState(ctx, t); err != nil {
			return err
		}
		changedBy := actor.ID
		if _, err := s.history.Record(ctx, tx.History(), t.ID, &from, next, reason, &changedBy); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.TaskService.ChangeState: %w", err)
	}
	if !changed {
		return task, nil
	}

	details := map[string]any{"from": from, "to": next}
	if r := strings.TrimSpace(reason); r != "" {
		details["reason"] = r
	}
	s.audit(ctx, actor, "task.state", "task", task.ID, details)
	s.publish(ctx, actor, domain.BoardEventTaskMoved, task)
	s.notify(ctx, actor, task.AssigneeID, fmt.Sprintf("Task %q moved %s -> %s", task.Title, from, next))
	return task, nil
}

// Transitions returns the states reachable from the task's current state.
func (s *TaskService) Transitions(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Task, []domain.TaskState, error) {
	task, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	return task, domain.AllowedTransitions(task.State), nil
}

// History returns the task's entries, newest first.
func (s *TaskService) History(ctx context.Context, actor domain.Actor, taskID uuid.UUID) ([]*domain.StateHistoryEntry, error) {
	task, err := s.store.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("service.TaskService.History: task %s: %w", taskID, err)
	}
	if err := authz.Authorize(actor, authz.ActionViewTask, authz.TaskResource(task)); err != nil {
		return nil, fmt.Errorf("service.TaskService.History: %w", err)
	}
	entries, err := s.store.History().ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("service.TaskService.History: %w", err)
	}
	return entries, nil
}

func (s *TaskService) HistoryByActor(ctx context.Context, actor domain.Actor, changedBy uuid.UUID) ([]*domain.StateHistoryEntry, error) {
	return scopedHistory(actor, "HistoryByActor", func(dep *uuid.UUID) ([]*domain.StateHistoryEntry, error) {
		return s.store.History().ListByChangedBy(ctx, changedBy, dep)
	})
}

func (s *TaskService) HistoryByOldState(ctx context.Context, actor domain.Actor, state domain.TaskState) ([]*domain.StateHistoryEntry, error) {
	if !domain.ValidateTaskState(state) {
		return nil, fmt.Errorf("service.TaskService.HistoryByOldState: unknown state %q: %w", state, domain.ErrValidation)
	}
	return scopedHistory(actor, "HistoryByOldState", func(dep *uuid.UUID) ([]*domain.StateHistoryEntry, error) {
		return s.store.History().ListByOldState(ctx, state, dep)
	})
}

func (s *TaskService) HistoryByNewState(ctx context.Context, actor domain.Actor, state domain.TaskState) ([]*domain.StateHistoryEntry, error) {
	if !domain.ValidateTaskState(state) {
		return nil, fmt.Errorf("service.TaskService.HistoryByNewState: unknown state %q: %w", state, domain.ErrValidation)
	}
	return scopedHistory(actor, "HistoryByNewState", func(dep *uuid.UUID) ([]*domain.StateHistoryEntry, error) {
		return s.store.History().ListByNewState(ctx, state, dep)
	})
}

// HistoryInRange returns entries with from <= ChangedAt <= to.
func (s *TaskService) HistoryInRange(ctx context.Context, actor domain.Actor, from, to time.Time) ([]*domain.StateHistoryEntry, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("service.TaskService.HistoryInRange: range end precedes start: %w", domain.ErrValidation)
	}
	return scopedHistory(actor, "HistoryInRange", func(dep *uuid.UUID) ([]*domain.StateHistoryEntry, error) {
		return s.store.History().ListByTimeRange(ctx, from, to, dep)
	})
}

// scopedHistory runs query restricted to the departments the actor may view,
// so the repository limit counts only visible rows.
func scopedHistory(
	actor domain.Actor,
	method string,
	query func(departmentID *uuid.UUID) ([]*domain.StateHistoryEntry, error),
) ([]*domain.StateHistoryEntry, error) {
	dep, ok := authz.ViewScope(actor)
	if !ok {
		return []*domain.StateHistoryEntry{}, nil
	}
	entries, err := query(dep)
	if err != nil {
		return nil, fmt.Errorf("service.TaskService.%s: %w", method, err)
	}
	return visibleHistory(actor, entries), nil
}

func visibleHistory(actor domain.Actor, entries []*domain.StateHistoryEntry) []*domain.StateHistoryEntry {
	visible := make([]*domain.StateHistoryEntry, 0, len(entries))
	for _, e := range entries {
		dep := e.DepartmentID
		res := authz.Resource{Kind: authz.ResourceTask, ID: e.TaskID, DepartmentID: &dep}
		if authz.Evaluate(actor, authz.ActionViewTask, res).Allowed {
			visible = append(visible, e)
		}
	}
	return visible
}
