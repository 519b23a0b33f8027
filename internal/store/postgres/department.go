package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/taskhub/internal/domain"
)

type DepartmentRepo struct {
	db dbtx
}

func NewDepartmentRepo(db dbtx) *DepartmentRepo {
	return &DepartmentRepo{db: db}
}

func (r *DepartmentRepo) Create(ctx context.Context, d *domain.Department) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO departments (id, name, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		d.ID, d.Name, d.Description, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return mapErr("departmentRepo.Create", err)
	}

	return nil
}

func (r *DepartmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Department, error) {
	return r.getOne(ctx, "departmentRepo.GetByID",
		`SELECT id, name, description, created_at, updated_at FROM departments WHERE id = $1`, id)
}

func (r *DepartmentRepo) GetByName(ctx context.Context, name string) (*domain.Department, error) {
	return r.getOne(ctx, "departmentRepo.GetByName",
		`SELECT id, name, description, created_at, updated_at FROM departments WHERE name = $1`, name)
}

func (r *DepartmentRepo) getOne(ctx context.Context, caller, query string, arg any) (*domain.Department, error) {
	var d domain.Department

	err := r.db.QueryRow(ctx, query, arg).Scan(&d.ID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", caller, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", caller, err)
	}

	return &d, nil
}

func (r *DepartmentRepo) Update(ctx context.Context, d *domain.Department) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE departments SET name = $1, description = $2, updated_at = $3 WHERE id = $4`,
		d.Name, d.Description, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return mapErr("departmentRepo.Update", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("departmentRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *DepartmentRepo) List(ctx context.Context) ([]*domain.Department, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, description, created_at, updated_at
		 FROM departments ORDER BY name
		 LIMIT 1000`,
	)
	if err != nil {
		return nil, fmt.Errorf("departmentRepo.List: %w", err)
	}
	defer rows.Close()

	var deps []*domain.Department
	for rows.Next() {
		var d domain.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("departmentRepo.List: scan: %w", err)
		}
		deps = append(deps, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("departmentRepo.List: rows: %w", err)
	}

	return deps, nil
}

func (r *DepartmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return mapErr("departmentRepo.Delete", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("departmentRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
