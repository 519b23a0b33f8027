package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gosuda/taskhub/internal/authz"
	"github.com/gosuda/taskhub/internal/domain"
)

type DepartmentService struct {
	base
}

func NewDepartmentService(store DataStore, opts ...Option) *DepartmentService {
	return &DepartmentService{base: newBase(store, opts)}
}

func (s *DepartmentService) Create(ctx context.Context, actor domain.Actor, name, description string) (*domain.Department, error) {
	if err := authz.Authorize(actor, authz.ActionManageDepartment, authz.Resource{Kind: authz.ResourceDepartment}); err != nil {
		return nil, fmt.Errorf("service.DepartmentService.Create: %w", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("service.DepartmentService.Create: name is required: %w", domain.ErrValidation)
	}

	now := s.now()
	d := &domain.Department{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.store.InTx(ctx, func(tx domain.Repositories) error {
		if err := ensureDepartmentNameFree(ctx, tx, name, uuid.Nil); err != nil {
			return err
		}
		return tx.Departments().Create(ctx, d)
	})
	if err != nil {
		return nil, fmt.Errorf("service.DepartmentService.Create: %w", err)
	}

	s.audit(ctx, actor, "department.create", "department", d.ID, map[string]any{"name": d.Name})
	return d, nil
}

func ensureDepartmentNameFree(ctx context.Context, tx domain.Repositories, name string, self uuid.UUID) error {
	existing, err := tx.Departments().GetByName(ctx, name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != self:
		return fmt.Errorf("department %q already exists: %w", name, domain.ErrConflict)
	}
	return nil
}

// Get is open to anyone who may view projects.
func (s *DepartmentService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Department, error) {
	if err := authz.Authorize(actor, authz.ActionViewProject, authz.DepartmentResource(id)); err != nil {
		return nil, fmt.Errorf("service.DepartmentService.Get: %w", err)
	}
	d, err := s.store.Departments().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.DepartmentService.Get: department %s: %w", id, err)
	}
	return d, nil
}

func (s *DepartmentService) List(ctx context.Context, actor domain.Actor) ([]*domain.Department, error) {
	if err := authz.Authorize(actor, authz.ActionViewProject, authz.Resource{Kind: authz.ResourceDepartment}); err != nil {
		return nil, fmt.Errorf("service.DepartmentService.List: %w", err)
	}
	deps, err := s.store.Departments().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.DepartmentService.List: %w", err)
	}
	return deps, nil
}

func (s *DepartmentService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, name, description *string) (*domain.Department, error) {
	if err := authz.Authorize(actor, authz.ActionManageDepartment, authz.DepartmentResource(id)); err != nil {
		return nil, fmt.Errorf("service.DepartmentService.Update: %w", err)
	}

	var dep *domain.Department
	err := s.store.InTx(ctx, func(tx domain.Repositories) error {
		d, err := tx.Departments().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("department %s: %w", id, err)
		}
		if name != nil {
			n := strings.TrimSpace(*name)
			if n == "" {
				return fmt.Errorf("department %s: name is required: %w", id, domain.ErrValidation)
			}
			if n != d.Name {
				if err := ensureDepartmentNameFree(ctx, tx, n, d.ID); err != nil {
					return err
				}
			}
			d.Name = n
		}
		if description != nil {
			d.Description = *description
		}
		d.UpdatedAt = s.now()
		if err := tx.Departments().Update(ctx, d); err != nil {
			return err
		}
		dep = d
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.DepartmentService.Update: %w", err)
	}

	s.audit(ctx, actor, "department.update", "department", id, nil)
	return dep, nil
}

// Delete removes a department that owns no projects.
func (s *DepartmentService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := authz.Authorize(actor, authz.ActionManageDepartment, authz.DepartmentResource(id)); err != nil {
		return fmt.Errorf("service.DepartmentService.Delete: %w", err)
	}
	err := s.store.InTx(ctx, func(tx domain.Repositories) error {
		if _, err := tx.Departments().GetByID(ctx, id); err != nil {
			return fmt.Errorf("department %s: %w", id, err)
		}
		projects, err := tx.Projects().ListByDepartment(ctx, id)
		if err != nil {
			return err
		}
		if len(projects) > 0 {
			return fmt.Errorf("department %s still has %d projects: %w", id, len(projects), domain.ErrConflict)
		}
		return tx.Departments().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("service.DepartmentService.Delete: %w", err)
	}

	s.audit(ctx, actor, "department.delete", "department", id, nil)
	return nil
}
