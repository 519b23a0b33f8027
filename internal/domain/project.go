package domain

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	ProjectStatusPlanned   ProjectStatus = "PLANNED"
	ProjectStatusActive    ProjectStatus = "ACTIVE"
	ProjectStatusOnHold    ProjectStatus = "ON_HOLD"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
	ProjectStatusCancelled ProjectStatus = "CANCELLED"
)

var ValidProjectStatuses = []ProjectStatus{ //nolint:gochecknoglobals // canonical enum list
	ProjectStatusPlanned,
	ProjectStatusActive,
	ProjectStatusOnHold,
	ProjectStatusCompleted,
	ProjectStatusCancelled,
}

func ValidateProjectStatus(s ProjectStatus) bool {
	return slices.Contains(ValidProjectStatuses, s)
}

type Project struct {
	ID           uuid.UUID     `json:"id"`
	DepartmentID uuid.UUID     `json:"department_id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Status       ProjectStatus `json:"status"`
	StartDate    *time.Time    `json:"start_date,omitempty"`
	EndDate      *time.Time    `json:"end_date,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewProject creates a Project with validated required fields and defaults.
func NewProject(departmentID uuid.UUID, name, description string, startDate, endDate *time.Time) (*Project, error) {
	if departmentID == uuid.Nil {
		return nil, fmt.Errorf("project: department ID is required: %w", ErrValidation)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("project: name is required: %w", ErrValidation)
	}
	if startDate != nil && endDate != nil && endDate.Before(*startDate) {
		return nil, fmt.Errorf("project: end date precedes start date: %w", ErrValidation)
	}
	now := time.Now()
	return &Project{
		ID:           uuid.New(),
		DepartmentID: departmentID,
		Name:         name,
		Description:  description,
		Status:       ProjectStatusPlanned,
		StartDate:    startDate,
		EndDate:      endDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

type ProjectRepository interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	GetByName(ctx context.Context, departmentID uuid.UUID, name string) (*Project, error)
	Update(ctx context.Context, p *Project) error
	List(ctx context.Context) ([]*Project, error)
	ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*Project, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Members
	AddMember(ctx context.Context, projectID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error
	IsMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
	ListMembers(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error)
}
