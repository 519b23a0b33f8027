package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/taskhub/internal/domain"
)

type GetBoardInput struct {
	ProjectID uuid.UUID `path:"projectID" doc:"Project ID"`
}

// Board groups a project's tasks into one column per lifecycle state.
type Board struct {
	Project    *domain.Project `json:"project"`
	Backlog    []*domain.Task  `json:"backlog"`
	InAnalysis []*domain.Task  `json:"in_analysis"`
	InProgress []*domain.Task  `json:"in_progress"`
	Blocked    []*domain.Task  `json:"blocked"`
	Completed  []*domain.Task  `json:"completed"`
	Cancelled  []*domain.Task  `json:"cancelled"`
}

type GetBoardOutput struct {
	Body *Board
}

func RegisterBoardRoutes(api huma.API, tasks TaskService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/boards/{projectID}",
		Summary:     "Get kanban board for a project",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *GetBoardInput) (*GetBoardOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		project, list, err := tasks.Board(ctx, actor, input.ProjectID)
		if err != nil {
			return nil, toHTTPError(err, "failed to load board")
		}

		board := &Board{
			Project:    project,
			Backlog:    make([]*domain.Task, 0),
			InAnalysis: make([]*domain.Task, 0),
			InProgress: make([]*domain.Task, 0),
			Blocked:    make([]*domain.Task, 0),
			Completed:  make([]*domain.Task, 0),
			Cancelled:  make([]*domain.Task, 0),
		}

		for _, t := range list {
			switch t.State {
			case domain.TaskStateBacklog:
				board.Backlog = append(board.Backlog, t)
			case domain.TaskStateInAnalysis:
				board.InAnalysis = append(board.InAnalysis, t)
			case domain.TaskStateInProgress:
				board.InProgress = append(board.InProgress, t)
			case domain.TaskStateBlocked:
				board.Blocked = append(board.Blocked, t)
			case domain.TaskStateCompleted:
				board.Completed = append(board.Completed, t)
			case domain.TaskStateCancelled:
				board.Cancelled = append(board.Cancelled, t)
			}
		}

		return &GetBoardOutput{Body: board}, nil
	})
}
