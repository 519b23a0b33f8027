package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/taskhub/internal/api/v1"
	"github.com/gosuda/taskhub/internal/domain"
	"github.com/gosuda/taskhub/internal/service"
)

func fixtureTask(dept, project uuid.UUID) *domain.Task {
	now := time.Now().Truncate(time.Second)
	return &domain.Task{
		ID:           uuid.New(),
		ProjectID:    project,
		DepartmentID: dept,
		Title:        "Implement login",
		State:        domain.TaskStateBacklog,
		Priority:     domain.TaskPriorityMedium,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ---------------------------------------------------------------------------
// POST /tasks
// ---------------------------------------------------------------------------

func TestCreateTask(t *testing.T) {
	t.Parallel()

	dept := uuid.New()
	projectID := uuid.New()
	actor := memberActor(dept)

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		var createCalled bool
		_, api := humatest.New(t)
		svc := &mockTaskService{
			createFunc: func(_ context.Context, a domain.Actor, in service.CreateTaskInput) (*domain.Task, error) {
				createCalled = true
				assert.Equal(t, actor.ID, a.ID)
				assert.Equal(t, projectID, in.ProjectID)
				assert.Equal(t, "Implement login", in.Title)
				assert.Equal(t, domain.TaskPriorityHigh, in.Priority)
				task := fixtureTask(dept, projectID)
				task.Priority = in.Priority
				return task, nil
			},
		}
		v1.RegisterTaskRoutes(api, svc)

		resp := api.PostCtx(actorCtx(actor), "/tasks", map[string]any{
			"project_id": projectID.String(),
			"title":      "Implement login",
			"priority":   "HIGH",
		})

		require.Equal(t, http.StatusCreated, resp.Code)
		assert.True(t, createCalled, "TaskService.Create must be invoked")

		var body domain.Task
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, domain.TaskStateBacklog, body.State)
		assert.Equal(t, domain.TaskPriorityHigh, body.Priority)
		assert.Equal(t, dept, body.DepartmentID)
	})

	t.Run("missing_actor", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, &mockTaskService{})

		resp := api.PostCtx(context.Background(), "/tasks", map[string]any{
			"project_id": projectID.String(),
			"title":      "No actor",
		})

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("unknown_priority_rejected_by_schema", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, &mockTaskService{})

		resp := api.PostCtx(actorCtx(actor), "/tasks", map[string]any{
			"project_id": projectID.String(),
			"title":      "x",
			"priority":   "URGENT",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	errCases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"forbidden", fmt.Errorf("service.TaskService.Create: %w", forbidden()), http.StatusForbidden},
		{"project_not_found", fmt.Errorf("project: %w", domain.ErrNotFound), http.StatusNotFound},
		{"assignee_not_member", fmt.Errorf("assignee: %w", domain.ErrValidation), http.StatusBadRequest},
		{"store_error", errors.New("db connection lost"), http.StatusInternalServerError},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			svc := &mockTaskService{
				createFunc: func(context.Context, domain.Actor, service.CreateTaskInput) (*domain.Task, error) {
					return nil, tc.err
				},
			}
			v1.RegisterTaskRoutes(api, svc)

			resp := api.PostCtx(actorCtx(actor), "/tasks", map[string]any{
				"project_id": projectID.String(),
				"title":      "x",
			})

			assert.Equal(t, tc.wantStatus, resp.Code)
		})
	}
}

// ---------------------------------------------------------------------------
// GET /tasks
// ---------------------------------------------------------------------------

func TestListTasks(t *testing.T) {
	t.Parallel()

	dept := uuid.New()
	projectID := uuid.New()
	actor := memberActor(dept)

	t.Run("by_project", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockTaskService{
			listByProjectFunc: func(_ context.Context, _ domain.Actor, pid uuid.UUID) ([]*domain.Task, error) {
				assert.Equal(t, projectID, pid)
				return []*domain.Task{fixtureTask(dept, projectID), fixtureTask(dept, projectID)}, nil
			},
		}
		v1.RegisterTaskRoutes(api, svc)

		resp := api.GetCtx(actorCtx(actor), "/tasks?project_id="+projectID.String())

		require.Equal(t, http.StatusOK, resp.Code)
		var body []domain.Task
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Len(t, body, 2)
	})

	t.Run("defaults_to_own_assignments", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockTaskService{
			listByAssigneeFunc: func(_ context.Context, a domain.Actor, assignee uuid.UUID) ([]*domain.Task, error) {
				assert.Equal(t, a.ID, assignee)
				return nil, nil
			},
		}
		v1.RegisterTaskRoutes(api, svc)

		resp := api.GetCtx(actorCtx(actor), "/tasks")

		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("both_filters", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, &mockTaskService{})

		resp := api.GetCtx(actorCtx(actor), "/tasks?project_id="+projectID.String()+"&assignee_id="+actor.ID.String())

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("invalid_project_id", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, &mockTaskService{})

		resp := api.GetCtx(actorCtx(actor), "/tasks?project_id=nope")

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("other_department", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockTaskService{
			listByProjectFunc: func(context.Context, domain.Actor, uuid.UUID) ([]*domain.Task, error) {
				return nil, forbidden()
			},
		}
		v1.RegisterTaskRoutes(api, svc)

		resp := api.GetCtx(actorCtx(actor), "/tasks?project_id="+projectID.String())

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// PATCH /tasks/{id}
// ---------------------------------------------------------------------------

func TestUpdateTask(t *testing.T) {
	t.Parallel()

	dept := uuid.New()
	task := fixtureTask(dept, uuid.New())
	actor := memberActor(dept)

	t.Run("partial_update_passes_version", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockTaskService{
			updateFunc: func(_ context.Context, _ domain.Actor, id uuid.UUID, in service.UpdateTaskInput) (*domain.Task, error) {
				assert.Equal(t, task.ID, id)
				require.NotNil(t, in.Title)
				assert.Equal(t, "Renamed", *in.Title)
				assert.Nil(t, in.Description)
				require.NotNil(t, in.Priority)
				assert.Equal(t, domain.TaskPriorityLow, *in.Priority)
				require.NotNil(t, in.Version)
				assert.Equal(t, int64(3), *in.Version)
				updated := *task
				updated.Title = *in.Title
				return &updated, nil
			},
		}
		v1.RegisterTaskRoutes(api, svc)

		resp := api.PatchCtx(actorCtx(actor), "/tasks/"+task.ID.String(), map[string]any{
			"title":    "Renamed",
			"priority": "LOW",
			"version":  3,
		})

		require.Equal(t, http.StatusOK, resp.Code)
		var body domain.Task
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Renamed", body.Title)
	})

	t.Run("stale_version", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockTaskService{
			updateFunc: func(context.Context, domain.Actor, uuid.UUID, service.UpdateTaskInput) (*domain.Task, error) {
				return nil, fmt.Errorf("version 1 != 3: %w", domain.ErrConflict)
			},
		}
		v1.RegisterTaskRoutes(api, svc)

		resp := api.PatchCtx(actorCtx(actor), "/tasks/"+task.ID.String(), map[string]any{"version": 1})

		assert.Equal(t, http.StatusConflict, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// POST /tasks/{id}/state
// ---------------------------------------------------------------------------

func TestChangeTaskState(t *testing.T) {
	t.Parallel()

	dept := uuid.New()
	task := fixtureTask(dept, uuid.New())
	actor := memberActor(dept)

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockTaskService{
			changeStateFunc: func(_ context.Context, _ domain.Actor, id uuid.UUID, next domain.TaskState, reason string, version *int64) (*domain.Task, error) {
				assert.Equal(t, task.ID, id)
				assert.Equal(t, domain.TaskStateBlocked, next)
				assert.Equal(t, "waiting on vendor", reason)
				assert.Nil(t, version)
				moved := *task
				moved.State = next
				return &moved, nil
			},
		}
		v1.RegisterTaskRoutes(api, svc)

		resp := api.PostCtx(actorCtx(actor), "/tasks/"+task.ID.String()+"/state", map[string]any{
			"state":  "BLOCKED",
			"reason": "waiting on vendor",
		})

		require.Equal(t, http.StatusOK, resp.Code)
		var body domain.Task
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, domain.TaskStateBlocked, body.State)
	})

	t.Run("unknown_state_rejected_by_schema", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, &mockTaskService{})

		resp := api.PostCtx(actorCtx(actor), "/tasks/"+task.ID.String()+"/state", map[string]any{"state": "DONE"})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	transitionCases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "invalid_transition",
			err:        &domain.TransitionError{TaskID: task.ID, From: domain.TaskStateBacklog, To: domain.TaskStateCompleted, Err: domain.ErrInvalidTransition},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "terminal_state",
			err:        &domain.TransitionError{TaskID: task.ID, From: domain.TaskStateCompleted, To: domain.TaskStateBacklog, Err: domain.ErrImmutableState},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing_reason",
			err:        &domain.TransitionError{TaskID: task.ID, From: domain.TaskStateInProgress, To: domain.TaskStateBlocked, Err: domain.ErrMissingReason},
			wantStatus: http.StatusBadRequest,
		},
		{name: "forbidden", err: forbidden(), wantStatus: http.StatusForbidden},
		{name: "not_found", err: domain.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "conflict", err: domain.ErrConflict, wantStatus: http.StatusConflict},
	}
	for _, tc := range transitionCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			svc := &mockTaskService{
				changeStateFunc: func(context.Context, domain.Actor, uuid.UUID, domain.TaskState, string, *int64) (*domain.Task, error) {
					return nil, fmt.Errorf("service.TaskService.ChangeState: %w", tc.err)
				},
			}
			v1.RegisterTaskRoutes(api, svc)

			resp := api.PostCtx(actorCtx(actor), "/tasks/"+task.ID.String()+"/state", map[string]any{"state": "BLOCKED"})

			assert.Equal(t, tc.wantStatus, resp.Code)
		})
	}
}

// ---------------------------------------------------------------------------
// PUT /tasks/{id}/assignee and GET /tasks/{id}/transitions
// ---------------------------------------------------------------------------

func TestAssignTask(t *testing.T) {
	t.Parallel()

	dept := uuid.New()
	task := fixtureTask(dept, uuid.New())
	actor := memberActor(dept)
	assignee := uuid.New()

	t.Run("assign", func(t *testing.T) {
		t.Parallel()

		var called bool
		_, api := humatest.New(t)
		svc := &mockTaskService{
			assignFunc: func(_ context.Context, _ domain.Actor, id, who uuid.UUID, _ *int64) (*domain.Task, error) {
				called = true
				assert.Equal(t, task.ID, id)
				assert.Equal(t, assignee, who)
				assigned := *task
				assigned.AssigneeID = &who
				return &assigned, nil
			},
		}
		v1.RegisterTaskRoutes(api, svc)

		resp := api.PutCtx(actorCtx(actor), "/tasks/"+task.ID.String()+"/assignee", map[string]any{
			"assignee_id": assignee.String(),
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.True(t, called)
	})

	t.Run("null_unassigns", func(t *testing.T) {
		t.Parallel()

		var called bool
		_, api := humatest.New(t)
		svc := &mockTaskService{
			unassignFunc: func(context.Context, domain.Actor, uuid.UUID, *int64) (*domain.Task, error) {
				called = true
				return task, nil
			},
		}
		v1.RegisterTaskRoutes(api, svc)

		resp := api.PutCtx(actorCtx(actor), "/tasks/"+task.ID.String()+"/assignee", map[string]any{
			"assignee_id": nil,
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.True(t, called)
	})
}

func TestTaskTransitions(t *testing.T) {
	t.Parallel()

	dept := uuid.New()
	task := fixtureTask(dept, uuid.New())

	_, api := humatest.New(t)
	svc := &mockTaskService{
		transitionsFunc: func(context.Context, domain.Actor, uuid.UUID) (*domain.Task, []domain.TaskState, error) {
			return task, domain.AllowedTransitions(task.State), nil
		},
	}
	v1.RegisterTaskRoutes(api, svc)

	resp := api.GetCtx(actorCtx(memberActor(dept)), "/tasks/"+task.ID.String()+"/transitions")

	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		State       domain.TaskState   `json:"state"`
		Transitions []domain.TaskState `json:"transitions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, domain.TaskStateBacklog, body.State)
	assert.ElementsMatch(t, []domain.TaskState{domain.TaskStateInAnalysis, domain.TaskStateCancelled}, body.Transitions)
}

// ---------------------------------------------------------------------------
// DELETE /tasks/{id}
// ---------------------------------------------------------------------------

func TestDeleteTask(t *testing.T) {
	t.Parallel()

	dept := uuid.New()
	taskID := uuid.New()
	actor := memberActor(dept)

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockTaskService{
			deleteFunc: func(_ context.Context, _ domain.Actor, id uuid.UUID) error {
				assert.Equal(t, taskID, id)
				return nil
			},
		}
		v1.RegisterTaskRoutes(api, svc)

		resp := api.DeleteCtx(actorCtx(actor), "/tasks/"+taskID.String())

		assert.Equal(t, http.StatusNoContent, resp.Code)
	})

	t.Run("team_member_forbidden", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockTaskService{
			deleteFunc: func(context.Context, domain.Actor, uuid.UUID) error {
				return forbidden()
			},
		}
		v1.RegisterTaskRoutes(api, svc)

		resp := api.DeleteCtx(actorCtx(actor), "/tasks/"+taskID.String())

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}
