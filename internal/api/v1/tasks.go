package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/taskhub/internal/domain"
	"github.com/gosuda/taskhub/internal/service"
)

type CreateTaskInput struct {
	Body struct {
		ProjectID   uuid.UUID  `json:"project_id" doc:"Project ID"`
		Title       string     `json:"title" minLength:"1" maxLength:"500" doc:"Task title"`
		Description string     `json:"description,omitempty" doc:"Task description"`
		Priority    string     `json:"priority,omitempty" enum:"LOW,MEDIUM,HIGH,CRITICAL" doc:"Task priority (default MEDIUM)"`
		AssigneeID  *uuid.UUID `json:"assignee_id,omitempty" doc:"Initial assignee, must be a project member"`
		DueDate     *time.Time `json:"due_date,omitempty" doc:"Due date"`
	}
}

type TaskOutput struct {
	Body *domain.Task
}

type ListTasksInput struct {
	ProjectID  string `query:"project_id" doc:"List the tasks of this project"`
	AssigneeID string `query:"assignee_id" doc:"List the tasks assigned to this user"`
}

type ListTasksOutput struct {
	Body []*domain.Task
}

type TaskIDInput struct {
	ID uuid.UUID `path:"id" doc:"Task ID"`
}

type UpdateTaskInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body struct {
		Title        *string    `json:"title,omitempty" maxLength:"500" doc:"Task title"`
		Description  *string    `json:"description,omitempty" doc:"Task description"`
		Priority     *string    `json:"priority,omitempty" enum:"LOW,MEDIUM,HIGH,CRITICAL" doc:"Task priority"`
		DueDate      *time.Time `json:"due_date,omitempty" doc:"Due date"`
		ClearDueDate bool       `json:"clear_due_date,omitempty" doc:"Remove the due date"`
		Version      *int64     `json:"version,omitempty" doc:"Expected current version"`
	}
}

type AssignTaskInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body struct {
		AssigneeID *uuid.UUID `json:"assignee_id" required:"false" doc:"New assignee; null unassigns"`
		Version    *int64     `json:"version,omitempty" doc:"Expected current version"`
	}
}

type ChangeTaskStateInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body struct {
		State   string `json:"state" enum:"BACKLOG,IN_ANALYSIS,IN_PROGRESS,BLOCKED,COMPLETED,CANCELLED" doc:"Target state"`
		Reason  string `json:"reason,omitempty" maxLength:"2000" doc:"Required when moving to BLOCKED or CANCELLED"`
		Version *int64 `json:"version,omitempty" doc:"Expected current version"`
	}
}

type TransitionsOutput struct {
	Body struct {
		State       domain.TaskState   `json:"state"`
		Transitions []domain.TaskState `json:"transitions"`
	}
}

func RegisterTaskRoutes(api huma.API, svc TaskService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create a new task",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTaskInput) (*TaskOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		t, err := svc.Create(ctx, actor, service.CreateTaskInput{
			ProjectID:   input.Body.ProjectID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Priority:    domain.TaskPriority(input.Body.Priority),
			AssigneeID:  input.Body.AssigneeID,
			DueDate:     input.Body.DueDate,
		})
		if err != nil {
			return nil, toHTTPError(err, "failed to create task")
		}

		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks by project or by assignee",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *ListTasksInput) (*ListTasksOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		var tasks []*domain.Task
		switch {
		case input.ProjectID != "" && input.AssigneeID != "":
			return nil, huma.Error400BadRequest("use either project_id or assignee_id")
		case input.ProjectID != "":
			projectID, parseErr := uuid.Parse(input.ProjectID)
			if parseErr != nil {
				return nil, huma.Error400BadRequest("invalid project_id")
			}
			tasks, err = svc.ListByProject(ctx, actor, projectID)
		case input.AssigneeID != "":
			assigneeID, parseErr := uuid.Parse(input.AssigneeID)
			if parseErr != nil {
				return nil, huma.Error400BadRequest("invalid assignee_id")
			}
			tasks, err = svc.ListByAssignee(ctx, actor, assigneeID)
		default:
			tasks, err = svc.ListByAssignee(ctx, actor, actor.ID)
		}
		if err != nil {
			return nil, toHTTPError(err, "failed to list tasks")
		}

		return &ListTasksOutput{Body: tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get a task by ID",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*TaskOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		t, err := svc.Get(ctx, actor, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to get task")
		}

		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *UpdateTaskInput) (*TaskOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		in := service.UpdateTaskInput{
			Title:        input.Body.Title,
			Description:  input.Body.Description,
			DueDate:      input.Body.DueDate,
			ClearDueDate: input.Body.ClearDueDate,
			Version:      input.Body.Version,
		}
		if input.Body.Priority != nil {
			p := domain.TaskPriority(*input.Body.Priority)
			in.Priority = &p
		}

		t, err := svc.Update(ctx, actor, input.ID, in)
		if err != nil {
			return nil, toHTTPError(err, "failed to update task")
		}

		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Delete a task; its state history is kept",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*struct{}, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		if err := svc.Delete(ctx, actor, input.ID); err != nil {
			return nil, toHTTPError(err, "failed to delete task")
		}

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}/assignee",
		Summary:     "Assign or unassign a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *AssignTaskInput) (*TaskOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		var t *domain.Task
		if input.Body.AssigneeID == nil {
			t, err = svc.Unassign(ctx, actor, input.ID, input.Body.Version)
		} else {
			t, err = svc.Assign(ctx, actor, input.ID, *input.Body.AssigneeID, input.Body.Version)
		}
		if err != nil {
			return nil, toHTTPError(err, "failed to assign task")
		}

		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-task-state",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/state",
		Summary:     "Move a task to another lifecycle state",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *ChangeTaskStateInput) (*TaskOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		t, err := svc.ChangeState(ctx, actor, input.ID, domain.TaskState(input.Body.State), input.Body.Reason, input.Body.Version)
		if err != nil {
			return nil, toHTTPError(err, "failed to change task state")
		}

		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-task-transitions",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/transitions",
		Summary:     "List the states a task may move to",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*TransitionsOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		t, next, err := svc.Transitions(ctx, actor, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to list transitions")
		}

		out := &TransitionsOutput{}
		out.Body.State = t.State
		out.Body.Transitions = next
		return out, nil
	})
}
