package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/taskhub/internal/domain"
)

type ProjectRepo struct {
	db dbtx
}

func NewProjectRepo(db dbtx) *ProjectRepo {
	return &ProjectRepo{db: db}
}

const projectColumns = `id, department_id, name, description, status, start_date, end_date, created_at, updated_at`

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.DepartmentID, p.Name, p.Description, p.Status,
		p.StartDate, p.EndDate, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapErr("projectRepo.Create", err)
	}

	return nil
}

func (r *ProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("projectRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("projectRepo.GetByID: %w", err)
	}

	return p, nil
}

func (r *ProjectRepo) GetByName(ctx context.Context, departmentID uuid.UUID, name string) (*domain.Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE department_id = $1 AND name = $2`,
		departmentID, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("projectRepo.GetByName: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("projectRepo.GetByName: %w", err)
	}

	return p, nil
}

func (r *ProjectRepo) Update(ctx context.Context, p *domain.Project) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE projects SET name = $1, description = $2, status = $3, start_date = $4, end_date = $5, updated_at = $6
		 WHERE id = $7`,
		p.Name, p.Description, p.Status, p.StartDate, p.EndDate, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return mapErr("projectRepo.Update", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("projectRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *ProjectRepo) List(ctx context.Context) ([]*domain.Project, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+projectColumns+` FROM projects
		 ORDER BY created_at DESC
		 LIMIT 1000`,
	)
	if err != nil {
		return nil, fmt.Errorf("projectRepo.List: %w", err)
	}
	defer rows.Close()

	return scanProjects(rows, "projectRepo.List")
}

func (r *ProjectRepo) ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*domain.Project, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE department_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1000`,
		departmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("projectRepo.ListByDepartment: %w", err)
	}
	defer rows.Close()

	return scanProjects(rows, "projectRepo.ListByDepartment")
}

func (r *ProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return mapErr("projectRepo.Delete", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("projectRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

// --- Members ---

func (r *ProjectRepo) AddMember(ctx context.Context, projectID, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO project_members (project_id, user_id) VALUES ($1, $2)`,
		projectID, userID,
	)
	if err != nil {
		return mapErr("projectRepo.AddMember", err)
	}

	return nil
}

func (r *ProjectRepo) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`,
		projectID, userID,
	)
	if err != nil {
		return fmt.Errorf("projectRepo.RemoveMember: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("projectRepo.RemoveMember: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *ProjectRepo) IsMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2)`,
		projectID, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("projectRepo.IsMember: %w", err)
	}

	return ok, nil
}

func (r *ProjectRepo) ListMembers(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM project_members WHERE project_id = $1 ORDER BY added_at`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("projectRepo.ListMembers: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("projectRepo.ListMembers: %w", err)
	}

	return ids, nil
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	if err := row.Scan(
		&p.ID, &p.DepartmentID, &p.Name, &p.Description, &p.Status,
		&p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProjects(rows pgx.Rows, caller string) ([]*domain.Project, error) {
	var projects []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return projects, nil
}
