package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/taskhub/internal/domain"
)

type TaskHistoryInput struct {
	ID uuid.UUID `path:"id" doc:"Task ID"`
}

type QueryHistoryInput struct {
	ChangedBy string    `query:"changed_by" doc:"Entries recorded for this user"`
	OldState  string    `query:"old_state" enum:"BACKLOG,IN_ANALYSIS,IN_PROGRESS,BLOCKED,COMPLETED,CANCELLED" doc:"Entries leaving this state"`
	NewState  string    `query:"new_state" enum:"BACKLOG,IN_ANALYSIS,IN_PROGRESS,BLOCKED,COMPLETED,CANCELLED" doc:"Entries entering this state"`
	From      time.Time `query:"from" doc:"Inclusive lower bound on changed_at"`
	To        time.Time `query:"to" doc:"Inclusive upper bound on changed_at"`
}

type HistoryOutput struct {
	Body []*domain.StateHistoryEntry
}

// RegisterHistoryRoutes mounts the state history read endpoints. Results are
// newest first and limited to departments the actor can see.
func RegisterHistoryRoutes(api huma.API, svc HistoryService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-task-history",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/history",
		Summary:     "State history of a task",
		Tags:        []string{"History"},
	}, func(ctx context.Context, input *TaskHistoryInput) (*HistoryOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		entries, err := svc.History(ctx, actor, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to load history")
		}

		return &HistoryOutput{Body: entries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "query-history",
		Method:      http.MethodGet,
		Path:        "/history",
		Summary:     "Query state history by actor, state or time range",
		Description: "Exactly one filter must be given: changed_by, old_state, new_state, or the from/to pair.",
		Tags:        []string{"History"},
	}, func(ctx context.Context, input *QueryHistoryInput) (*HistoryOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		byRange := !input.From.IsZero() || !input.To.IsZero()
		filters := 0
		for _, set := range []bool{input.ChangedBy != "", input.OldState != "", input.NewState != "", byRange} {
			if set {
				filters++
			}
		}
		if filters != 1 {
			return nil, huma.Error400BadRequest("exactly one of changed_by, old_state, new_state or from/to is required")
		}

		var entries []*domain.StateHistoryEntry
		switch {
		case input.ChangedBy != "":
			changedBy, parseErr := uuid.Parse(input.ChangedBy)
			if parseErr != nil {
				return nil, huma.Error400BadRequest("invalid changed_by")
			}
			entries, err = svc.HistoryByActor(ctx, actor, changedBy)
		case input.OldState != "":
			entries, err = svc.HistoryByOldState(ctx, actor, domain.TaskState(input.OldState))
		case input.NewState != "":
			entries, err = svc.HistoryByNewState(ctx, actor, domain.TaskState(input.NewState))
		default:
			if input.From.IsZero() || input.To.IsZero() {
				return nil, huma.Error400BadRequest("from and to must be given together")
			}
			entries, err = svc.HistoryInRange(ctx, actor, input.From, input.To)
		}
		if err != nil {
			return nil, toHTTPError(err, "failed to query history")
		}

		return &HistoryOutput{Body: entries}, nil
	})
}
