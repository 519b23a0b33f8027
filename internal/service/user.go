package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/gosuda/taskhub/internal/auth"
	"github.com/gosuda/taskhub/internal/authz"
	"github.com/gosuda/taskhub/internal/domain"
)

type UserService struct {
	base
}

func NewUserService(store DataStore, opts ...Option) *UserService {
	return &UserService{base: newBase(store, opts)}
}

type CreateUserInput struct {
	Email        string
	Password     string
	Name         string
	Roles        []domain.Role
	DepartmentID *uuid.UUID
	SlackUserID  string
}

// UpdateUserInput carries a partial update. Roles and department may only be
// changed by an ADMIN.
type UpdateUserInput struct {
	Email           *string
	Password        *string
	Name            *string
	SlackUserID     *string
	Roles           []domain.Role
	DepartmentID    *uuid.UUID
	ClearDepartment bool
}

func (in UpdateUserInput) touchesAccess() bool {
	return in.Roles != nil || in.DepartmentID != nil || in.ClearDepartment
}

// accountAdmin is a user resource without an owner, so only ADMIN passes.
func accountAdmin(id uuid.UUID) authz.Resource {
	return authz.Resource{Kind: authz.ResourceUser, ID: id}
}

func (s *UserService) Create(ctx context.Context, actor domain.Actor, in CreateUserInput) (*domain.User, error) {
	if err := authz.Authorize(actor, authz.ActionManageUser, accountAdmin(uuid.Nil)); err != nil {
		return nil, fmt.Errorf("service.UserService.Create: %w", err)
	}
	u, err := s.newUser(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("service.UserService.Create: %w", err)
	}

	s.audit(ctx, actor, "user.create", "user", u.ID, map[string]any{"email": u.Email, "roles": u.Roles})
	return u, nil
}

// Bootstrap creates the first ADMIN. It runs without an actor and refuses to
// run once any ADMIN exists.
func (s *UserService) Bootstrap(ctx context.Context, email, password, name string) (*domain.User, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.UserService.Bootstrap: %w", err)
	}
	for _, u := range users {
		if slices.Contains(u.Roles, domain.RoleAdmin) {
			return nil, fmt.Errorf("service.UserService.Bootstrap: admin %s already exists: %w", u.Email, domain.ErrConflict)
		}
	}

	u, err := s.newUser(ctx, CreateUserInput{
		Email:    email,
		Password: password,
		Name:     name,
		Roles:    []domain.Role{domain.RoleAdmin},
	})
	if err != nil {
		return nil, fmt.Errorf("service.UserService.Bootstrap: %w", err)
	}

	entry := &domain.AuditEntry{
		ID:         uuid.New(),
		Action:     "user.bootstrap",
		Resource:   "user",
		ResourceID: u.ID,
		CreatedAt:  s.now(),
	}
	if err := s.store.Audit().Record(ctx, entry); err != nil {
		return u, fmt.Errorf("service.UserService.Bootstrap: audit: %w", err)
	}
	return u, nil
}

func (s *UserService) newUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if err := validateRoles(in.Roles); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &domain.User{
		ID:           uuid.New(),
		DepartmentID: in.DepartmentID,
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Roles:        slices.Clone(in.Roles),
		SlackUserID:  strings.TrimSpace(in.SlackUserID),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.store.InTx(ctx, func(tx domain.Repositories) error {
		if u.DepartmentID != nil {
			if _, err := tx.Departments().GetByID(ctx, *u.DepartmentID); err != nil {
				return fmt.Errorf("department %s: %w", *u.DepartmentID, err)
			}
		}
		if err := ensureEmailFree(ctx, tx, email, uuid.Nil); err != nil {
			return err
		}
		return tx.Users().Create(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.User, error) {
	if err := authz.Authorize(actor, authz.ActionViewUser, authz.UserResource(id)); err != nil {
		return nil, fmt.Errorf("service.UserService.Get: %w", err)
	}
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.UserService.Get: user %s: %w", id, err)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, actor domain.Actor) ([]*domain.User, error) {
	if err := authz.Authorize(actor, authz.ActionViewUser, accountAdmin(uuid.Nil)); err != nil {
		return nil, fmt.Errorf("service.UserService.List: %w", err)
	}
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.UserService.List: %w", err)
	}
	return users, nil
}

func (s *UserService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in UpdateUserInput) (*domain.User, error) {
	if err := authz.Authorize(actor, authz.ActionManageUser, authz.UserResource(id)); err != nil {
		return nil, fmt.Errorf("service.UserService.Update: %w", err)
	}
	if in.touchesAccess() {
		if err := authz.Authorize(actor, authz.ActionManageUser, accountAdmin(id)); err != nil {
			return nil, fmt.Errorf("service.UserService.Update: roles or department: %w", err)
		}
	}

	var user *domain.User
	err := s.store.InTx(ctx, func(tx domain.Repositories) error {
		u, err := tx.Users().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("user %s: %w", id, err)
		}
		if err := s.applyUserUpdate(ctx, tx, u, in); err != nil {
			return err
		}
		u.UpdatedAt = s.now()
		if err := tx.Users().Update(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.UserService.Update: %w", err)
	}

	details := map[string]any{}
	if in.Roles != nil {
		details["roles"] = user.Roles
	}
	if in.DepartmentID != nil || in.ClearDepartment {
		details["department_id"] = user.DepartmentID
	}
	s.audit(ctx, actor, "user.update", "user", id, details)
	return user, nil
}

func (s *UserService) applyUserUpdate(ctx context.Context, tx domain.Repositories, u *domain.User, in UpdateUserInput) error {
	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return err
		}
		if email != u.Email {
			if err := ensureEmailFree(ctx, tx, email, u.ID); err != nil {
				return err
			}
		}
		u.Email = email
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return fmt.Errorf("user %s: name is required: %w", u.ID, domain.ErrValidation)
		}
		u.Name = name
	}
	if in.Password != nil {
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	}
	if in.SlackUserID != nil {
		u.SlackUserID = strings.TrimSpace(*in.SlackUserID)
	}
	if in.Roles != nil {
		if err := validateRoles(in.Roles); err != nil {
			return err
		}
		u.Roles = slices.Clone(in.Roles)
	}
	switch {
	case in.ClearDepartment:
		u.DepartmentID = nil
	case in.DepartmentID != nil:
		if _, err := tx.Departments().GetByID(ctx, *in.DepartmentID); err != nil {
			return fmt.Errorf("department %s: %w", *in.DepartmentID, err)
		}
		dep := *in.DepartmentID
		u.DepartmentID = &dep
	}
	return nil
}

func (s *UserService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := authz.Authorize(actor, authz.ActionManageUser, accountAdmin(id)); err != nil {
		return fmt.Errorf("service.UserService.Delete: %w", err)
	}
	if id == actor.ID {
		return fmt.Errorf("service.UserService.Delete: user %s cannot delete itself: %w", id, domain.ErrConflict)
	}
	if err := s.store.Users().Delete(ctx, id); err != nil {
		return fmt.Errorf("service.UserService.Delete: user %s: %w", id, err)
	}

	s.audit(ctx, actor, "user.delete", "user", id, nil)
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("invalid email %q: %w", raw, domain.ErrValidation)
	}
	return email, nil
}

func validateRoles(roles []domain.Role) error {
	if len(roles) == 0 {
		return fmt.Errorf("at least one role is required: %w", domain.ErrValidation)
	}
	for _, r := range roles {
		if !domain.ValidateRole(r) {
			return fmt.Errorf("unknown role %q: %w", r, domain.ErrValidation)
		}
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrWeakPassword) {
		return "", fmt.Errorf("password must be at least %d characters: %w", auth.MinPasswordLength, domain.ErrValidation)
	}
	return hash, err
}

func ensureEmailFree(ctx context.Context, tx domain.Repositories, email string, self uuid.UUID) error {
	existing, err := tx.Users().GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != self:
		return fmt.Errorf("email %q is already registered: %w", email, domain.ErrConflict)
	}
	return nil
}
