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

type CreateProjectInput struct {
	Body struct {
		DepartmentID uuid.UUID  `json:"department_id" doc:"Owning department"`
		Name         string     `json:"name" minLength:"1" maxLength:"255" doc:"Project name, unique within the department"`
		Description  string     `json:"description,omitempty" doc:"Project description"`
		StartDate    *time.Time `json:"start_date,omitempty" doc:"Planned start"`
		EndDate      *time.Time `json:"end_date,omitempty" doc:"Planned end, not before start"`
	}
}

type ProjectOutput struct {
	Body *domain.Project
}

type ListProjectsInput struct {
	DepartmentID string `query:"department_id" doc:"Only projects of this department"`
}

type ListProjectsOutput struct {
	Body []*domain.Project
}

type ProjectIDInput struct {
	ID uuid.UUID `path:"id" doc:"Project ID"`
}

type UpdateProjectInput struct {
	ID   uuid.UUID `path:"id" doc:"Project ID"`
	Body struct {
		Name        *string    `json:"name,omitempty" maxLength:"255" doc:"Project name"`
		Description *string    `json:"description,omitempty" doc:"Project description"`
		StartDate   *time.Time `json:"start_date,omitempty" doc:"Planned start"`
		EndDate     *time.Time `json:"end_date,omitempty" doc:"Planned end"`
	}
}

type ChangeProjectStatusInput struct {
	ID   uuid.UUID `path:"id" doc:"Project ID"`
	Body struct {
		Status string `json:"status" enum:"PLANNED,ACTIVE,ON_HOLD,COMPLETED,CANCELLED" doc:"New project status"`
	}
}

type ProjectMemberInput struct {
	ID     uuid.UUID `path:"id" doc:"Project ID"`
	UserID uuid.UUID `path:"userID" doc:"User ID"`
}

type ListMembersOutput struct {
	Body []uuid.UUID
}

func RegisterProjectRoutes(api huma.API, svc ProjectService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create a new project",
		Tags:          []string{"Projects"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateProjectInput) (*ProjectOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		p, err := svc.Create(ctx, actor, service.CreateProjectInput{
			DepartmentID: input.Body.DepartmentID,
			Name:         input.Body.Name,
			Description:  input.Body.Description,
			StartDate:    input.Body.StartDate,
			EndDate:      input.Body.EndDate,
		})
		if err != nil {
			return nil, toHTTPError(err, "failed to create project")
		}

		return &ProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *ListProjectsInput) (*ListProjectsOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		var departmentID *uuid.UUID
		if input.DepartmentID != "" {
			id, parseErr := uuid.Parse(input.DepartmentID)
			if parseErr != nil {
				return nil, huma.Error400BadRequest("invalid department_id")
			}
			departmentID = &id
		}

		projects, err := svc.List(ctx, actor, departmentID)
		if err != nil {
			return nil, toHTTPError(err, "failed to list projects")
		}

		return &ListProjectsOutput{Body: projects}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get a project by ID",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *ProjectIDInput) (*ProjectOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		p, err := svc.Get(ctx, actor, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to get project")
		}

		return &ProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}",
		Summary:     "Update a project",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *UpdateProjectInput) (*ProjectOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		p, err := svc.Update(ctx, actor, input.ID, service.UpdateProjectInput{
			Name:        input.Body.Name,
			Description: input.Body.Description,
			StartDate:   input.Body.StartDate,
			EndDate:     input.Body.EndDate,
		})
		if err != nil {
			return nil, toHTTPError(err, "failed to update project")
		}

		return &ProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-project-status",
		Method:      http.MethodPut,
		Path:        "/projects/{id}/status",
		Summary:     "Change a project's status",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *ChangeProjectStatusInput) (*ProjectOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		p, err := svc.ChangeStatus(ctx, actor, input.ID, domain.ProjectStatus(input.Body.Status))
		if err != nil {
			return nil, toHTTPError(err, "failed to change project status")
		}

		return &ProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/projects/{id}",
		Summary:     "Delete a project without tasks",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *ProjectIDInput) (*struct{}, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		if err := svc.Delete(ctx, actor, input.ID); err != nil {
			return nil, toHTTPError(err, "failed to delete project")
		}

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-project-members",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/members",
		Summary:     "List project members",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *ProjectIDInput) (*ListMembersOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		members, err := svc.ListMembers(ctx, actor, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to list members")
		}

		return &ListMembersOutput{Body: members}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-project-member",
		Method:      http.MethodPut,
		Path:        "/projects/{id}/members/{userID}",
		Summary:     "Add a user to a project",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *ProjectMemberInput) (*struct{}, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		if err := svc.AddMember(ctx, actor, input.ID, input.UserID); err != nil {
			return nil, toHTTPError(err, "failed to add member")
		}

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-project-member",
		Method:      http.MethodDelete,
		Path:        "/projects/{id}/members/{userID}",
		Summary:     "Remove a user from a project",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *ProjectMemberInput) (*struct{}, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		if err := svc.RemoveMember(ctx, actor, input.ID, input.UserID); err != nil {
			return nil, toHTTPError(err, "failed to remove member")
		}

		return nil, nil
	})
}
