package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/taskhub/internal/domain"
)

type CreateDepartmentInput struct {
	Body struct {
		Name        string `json:"name" minLength:"1" maxLength:"255" doc:"Department name"`
		Description string `json:"description,omitempty" doc:"Department description"`
	}
}

type DepartmentOutput struct {
	Body *domain.Department
}

type ListDepartmentsOutput struct {
	Body []*domain.Department
}

type DepartmentIDInput struct {
	ID uuid.UUID `path:"id" doc:"Department ID"`
}

type UpdateDepartmentInput struct {
	ID   uuid.UUID `path:"id" doc:"Department ID"`
	Body struct {
		Name        *string `json:"name,omitempty" maxLength:"255" doc:"Department name"`
		Description *string `json:"description,omitempty" doc:"Department description"`
	}
}

func RegisterDepartmentRoutes(api huma.API, svc DepartmentService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-department",
		Method:        http.MethodPost,
		Path:          "/departments",
		Summary:       "Create a department",
		Tags:          []string{"Departments"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateDepartmentInput) (*DepartmentOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		d, err := svc.Create(ctx, actor, input.Body.Name, input.Body.Description)
		if err != nil {
			return nil, toHTTPError(err, "failed to create department")
		}

		return &DepartmentOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-departments",
		Method:      http.MethodGet,
		Path:        "/departments",
		Summary:     "List departments",
		Tags:        []string{"Departments"},
	}, func(ctx context.Context, _ *struct{}) (*ListDepartmentsOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		deps, err := svc.List(ctx, actor)
		if err != nil {
			return nil, toHTTPError(err, "failed to list departments")
		}

		return &ListDepartmentsOutput{Body: deps}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-department",
		Method:      http.MethodGet,
		Path:        "/departments/{id}",
		Summary:     "Get a department by ID",
		Tags:        []string{"Departments"},
	}, func(ctx context.Context, input *DepartmentIDInput) (*DepartmentOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		d, err := svc.Get(ctx, actor, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to get department")
		}

		return &DepartmentOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-department",
		Method:      http.MethodPatch,
		Path:        "/departments/{id}",
		Summary:     "Update a department",
		Tags:        []string{"Departments"},
	}, func(ctx context.Context, input *UpdateDepartmentInput) (*DepartmentOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		d, err := svc.Update(ctx, actor, input.ID, input.Body.Name, input.Body.Description)
		if err != nil {
			return nil, toHTTPError(err, "failed to update department")
		}

		return &DepartmentOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-department",
		Method:      http.MethodDelete,
		Path:        "/departments/{id}",
		Summary:     "Delete an empty department",
		Tags:        []string{"Departments"},
	}, func(ctx context.Context, input *DepartmentIDInput) (*struct{}, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		if err := svc.Delete(ctx, actor, input.ID); err != nil {
			return nil, toHTTPError(err, "failed to delete department")
		}

		return nil, nil
	})
}
