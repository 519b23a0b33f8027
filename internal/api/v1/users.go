package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/taskhub/internal/domain"
	"github.com/gosuda/taskhub/internal/service"
)

type CreateUserInput struct {
	Body struct {
		Email        string        `json:"email" minLength:"3" maxLength:"255" doc:"User email"`
		Password     string        `json:"password" minLength:"8" maxLength:"128" doc:"Initial password"` //nolint:gosec // G117: account credential DTO
		Name         string        `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
		Roles        []domain.Role `json:"roles" minItems:"1" doc:"Granted roles"`
		DepartmentID *uuid.UUID    `json:"department_id,omitempty" doc:"Home department"`
		SlackUserID  string        `json:"slack_user_id,omitempty" doc:"Slack member ID for notifications"`
	}
}

type UserOutput struct {
	Body *domain.User
}

type ListUsersOutput struct {
	Body []*domain.User
}

type UserIDInput struct {
	ID uuid.UUID `path:"id" doc:"User ID"`
}

type UpdateUserInput struct {
	ID   uuid.UUID `path:"id" doc:"User ID"`
	Body struct {
		Email           *string       `json:"email,omitempty" maxLength:"255" doc:"User email"`
		Password        *string       `json:"password,omitempty" maxLength:"128" doc:"New password"` //nolint:gosec // G117: account credential DTO
		Name            *string       `json:"name,omitempty" maxLength:"255" doc:"Display name"`
		SlackUserID     *string       `json:"slack_user_id,omitempty" doc:"Slack member ID"`
		Roles           []domain.Role `json:"roles,omitempty" doc:"Replace granted roles (admin only)"`
		DepartmentID    *uuid.UUID    `json:"department_id,omitempty" doc:"Move to department (admin only)"`
		ClearDepartment bool          `json:"clear_department,omitempty" doc:"Detach from any department (admin only)"`
	}
}

func RegisterUserRoutes(api huma.API, svc UserService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Create a user account",
		Tags:          []string{"Users"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateUserInput) (*UserOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		u, err := svc.Create(ctx, actor, service.CreateUserInput{
			Email:        input.Body.Email,
			Password:     input.Body.Password,
			Name:         input.Body.Name,
			Roles:        input.Body.Roles,
			DepartmentID: input.Body.DepartmentID,
			SlackUserID:  input.Body.SlackUserID,
		})
		if err != nil {
			return nil, toHTTPError(err, "failed to create user")
		}

		return &UserOutput{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List user accounts",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, _ *struct{}) (*ListUsersOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		users, err := svc.List(ctx, actor)
		if err != nil {
			return nil, toHTTPError(err, "failed to list users")
		}

		return &ListUsersOutput{Body: users}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-current-user",
		Method:      http.MethodGet,
		Path:        "/users/me",
		Summary:     "Get the authenticated user",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, _ *struct{}) (*UserOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		u, err := svc.Get(ctx, actor, actor.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to get user")
		}

		return &UserOutput{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{id}",
		Summary:     "Get a user by ID",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *UserIDInput) (*UserOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		u, err := svc.Get(ctx, actor, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "failed to get user")
		}

		return &UserOutput{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-user",
		Method:      http.MethodPatch,
		Path:        "/users/{id}",
		Summary:     "Update a user account",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *UpdateUserInput) (*UserOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		u, err := svc.Update(ctx, actor, input.ID, service.UpdateUserInput{
			Email:           input.Body.Email,
			Password:        input.Body.Password,
			Name:            input.Body.Name,
			SlackUserID:     input.Body.SlackUserID,
			Roles:           input.Body.Roles,
			DepartmentID:    input.Body.DepartmentID,
			ClearDepartment: input.Body.ClearDepartment,
		})
		if err != nil {
			return nil, toHTTPError(err, "failed to update user")
		}

		return &UserOutput{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-user",
		Method:      http.MethodDelete,
		Path:        "/users/{id}",
		Summary:     "Delete a user account",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *UserIDInput) (*struct{}, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		if err := svc.Delete(ctx, actor, input.ID); err != nil {
			return nil, toHTTPError(err, "failed to delete user")
		}

		return nil, nil
	})
}
