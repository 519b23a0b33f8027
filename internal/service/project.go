package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/taskhub/internal/authz"
	"github.com/gosuda/taskhub/internal/domain"
)

type ProjectService struct {
	base
}

func NewProjectService(store DataStore, opts ...Option) *ProjectService {
	return &ProjectService{base: newBase(store, opts)}
}

type CreateProjectInput struct {
	DepartmentID uuid.UUID
	Name         string
	Description  string
	StartDate    *time.Time
	EndDate      *time.Time
}

type UpdateProjectInput struct {
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
}

// Create resolves the target department, then authorizes, then validates the
// input, so an unknown department is ErrNotFound for every caller.
func (s *ProjectService) Create(ctx context.Context, actor domain.Actor, in CreateProjectInput) (*domain.Project, error) {
	var p *domain.Project
	err := s.store.InTx(ctx, func(tx domain.Repositories) error {
		if _, err := tx.Departments().GetByID(ctx, in.DepartmentID); err != nil {
			return fmt.Errorf("department %s: %w", in.DepartmentID, err)
		}
		if err := authz.Authorize(actor, authz.ActionManageProject, authz.NewProjectResource(in.DepartmentID)); err != nil {
			return err
		}
		var err error
		p, err = domain.NewProject(in.DepartmentID, in.Name, in.Description, in.StartDate, in.EndDate)
		if err != nil {
			return err
		}
		p.CreatedAt = s.now()
		p.UpdatedAt = p.CreatedAt
		if err := ensureProjectNameFree(ctx, tx, p.DepartmentID, p.Name, uuid.Nil); err != nil {
			return err
		}
		return tx.Projects().Create(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("service.ProjectService.Create: %w", err)
	}

	s.audit(ctx, actor, "project.create", "project", p.ID, map[string]any{"name": p.Name, "department_id": p.DepartmentID})
	return p, nil
}

func ensureProjectNameFree(ctx context.Context, tx domain.Repositories, departmentID uuid.UUID, name string, self uuid.UUID) error {
	existing, err := tx.Projects().GetByName(ctx, departmentID, name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != self:
		return fmt.Errorf("project %q already exists in department %s: %w", name, departmentID, domain.ErrConflict)
	}
	return nil
}

func (s *ProjectService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Project, error) {
	p, err := s.store.Projects().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.ProjectService.Get: project %s: %w", id, err)
	}
	if err := authz.Authorize(actor, authz.ActionViewProject, authz.ProjectResource(p)); err != nil {
		return nil, fmt.Errorf("service.ProjectService.Get: %w", err)
	}
	return p, nil
}

// List returns every project, or only those of departmentID when set.
func (s *ProjectService) List(ctx context.Context, actor domain.Actor, departmentID *uuid.UUID) ([]*domain.Project, error) {
	res := authz.Resource{Kind: authz.ResourceProject, DepartmentID: departmentID}
	if err := authz.Authorize(actor, authz.ActionViewProject, res); err != nil {
		return nil, fmt.Errorf("service.ProjectService.List: %w", err)
	}

	var (
		projects []*domain.Project
		err      error
	)
	if departmentID != nil {
		projects, err = s.store.Projects().ListByDepartment(ctx, *departmentID)
	} else {
		projects, err = s.store.Projects().List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("service.ProjectService.List: %w", err)
	}
	return projects, nil
}

func (s *ProjectService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in UpdateProjectInput) (*domain.Project, error) {
	project, err := s.mutate(ctx, actor, id, func(tx domain.Repositories, p *domain.Project) error {
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return fmt.Errorf("project %s: name is required: %w", p.ID, domain.ErrValidation)
			}
			if name != p.Name {
				if err := ensureProjectNameFree(ctx, tx, p.DepartmentID, name, p.ID); err != nil {
					return err
				}
			}
			p.Name = name
		}
		if in.Description != nil {
			p.Description = *in.Description
		}
		if in.StartDate != nil {
			p.StartDate = in.StartDate
		}
		if in.EndDate != nil {
			p.EndDate = in.EndDate
		}
		if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
			return fmt.Errorf("project %s: end date precedes start date: %w", p.ID, domain.ErrValidation)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.ProjectService.Update: %w", err)
	}

	s.audit(ctx, actor, "project.update", "project", project.ID, nil)
	return project, nil
}

func (s *ProjectService) ChangeStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, status domain.ProjectStatus) (*domain.Project, error) {
	if !domain.ValidateProjectStatus(status) {
		return nil, fmt.Errorf("service.ProjectService.ChangeStatus: unknown status %q: %w", status, domain.ErrValidation)
	}
	var from domain.ProjectStatus
	project, err := s.mutate(ctx, actor, id, func(_ domain.Repositories, p *domain.Project) error {
		from = p.Status
		p.Status = status
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.ProjectService.ChangeStatus: %w", err)
	}

	s.audit(ctx, actor, "project.status", "project", project.ID, map[string]any{"from": from, "to": status})
	return project, nil
}

// mutate loads the project, checks ActionManageProject, applies fn and saves,
// all in one transaction.
func (s *ProjectService) mutate(ctx context.Context, actor domain.Actor, id uuid.UUID, fn func(tx domain.Repositories, p *domain.Project) error) (*domain.Project, error) {
	var project *domain.Project
	err := s.store.InTx(ctx, func(tx domain.Repositories) error {
		p, err := tx.Projects().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("project %s: %w", id, err)
		}
		if err := authz.Authorize(actor, authz.ActionManageProject, authz.ProjectResource(p)); err != nil {
			return err
		}
		if err := fn(tx, p); err != nil {
			return err
		}
		p.UpdatedAt = s.now()
		if err := tx.Projects().Update(ctx, p); err != nil {
			return err
		}
		project = p
		return nil
	})
	return project, err
}

// Delete removes a project that never had tasks. Live tasks are a conflict;
// deleted tasks keep their history and the store refuses the delete.
func (s *ProjectService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	err := s.store.InTx(ctx, func(tx domain.Repositories) error {
		p, err := tx.Projects().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("project %s: %w", id, err)
		}
		if err := authz.Authorize(actor, authz.ActionManageProject, authz.ProjectResource(p)); err != nil {
			return err
		}
		tasks, err := tx.Tasks().ListByProject(ctx, id)
		if err != nil {
			return err
		}
		if len(tasks) > 0 {
			return fmt.Errorf("project %s still has %d tasks: %w", id, len(tasks), domain.ErrConflict)
		}
		return tx.Projects().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("service.ProjectService.Delete: %w", err)
	}

	s.audit(ctx, actor, "project.delete", "project", id, nil)
	return nil
}

func (s *ProjectService) AddMember(ctx context.Context, actor domain.Actor, projectID, userID uuid.UUID) error {
	err := s.store.InTx(ctx, func(tx domain.Repositories) error {
		p, err := tx.Projects().GetByID(ctx, projectID)
		if err != nil {
			return fmt.Errorf("project %s: %w", projectID, err)
		}
		if err := authz.Authorize(actor, authz.ActionManageProject, authz.ProjectResource(p)); err != nil {
			return err
		}
		if _, err := tx.Users().GetByID(ctx, userID); err != nil {
			return fmt.Errorf("user %s: %w", userID, err)
		}
		member, err := tx.Projects().IsMember(ctx, projectID, userID)
		if err != nil {
			return err
		}
		if member {
			return fmt.Errorf("user %s is already a member of project %s: %w", userID, projectID, domain.ErrConflict)
		}
		return tx.Projects().AddMember(ctx, projectID, userID)
	})
	if err != nil {
		return fmt.Errorf("service.ProjectService.AddMember: %w", err)
	}

	s.audit(ctx, actor, "project.member.add", "project", projectID, map[string]any{"user_id": userID})
	return nil
}

func (s *ProjectService) RemoveMember(ctx context.Context, actor domain.Actor, projectID, userID uuid.UUID) error {
	err := s.store.InTx(ctx, func(tx domain.Repositories) error {
		p, err := tx.Projects().GetByID(ctx, projectID)
		if err != nil {
			return fmt.Errorf("project %s: %w", projectID, err)
		}
		if err := authz.Authorize(actor, authz.ActionManageProject, authz.ProjectResource(p)); err != nil {
			return err
		}
		member, err := tx.Projects().IsMember(ctx, projectID, userID)
		if err != nil {
			return err
		}
		if !member {
			return fmt.Errorf("user %s is not a member of project %s: %w", userID, projectID, domain.ErrConflict)
		}
		return tx.Projects().RemoveMember(ctx, projectID, userID)
	})
	if err != nil {
		return fmt.Errorf("service.ProjectService.RemoveMember: %w", err)
	}

	s.audit(ctx, actor, "project.member.remove", "project", projectID, map[string]any{"user_id": userID})
	return nil
}

func (s *ProjectService) ListMembers(ctx context.Context, actor domain.Actor, projectID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := s.Get(ctx, actor, projectID); err != nil {
		return nil, err
	}
	members, err := s.store.Projects().ListMembers(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("service.ProjectService.ListMembers: %w", err)
	}
	return members, nil
}
