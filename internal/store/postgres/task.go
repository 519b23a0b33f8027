package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/taskhub/internal/domain"
)

type TaskRepo struct {
	db dbtx
}

func NewTaskRepo(db dbtx) *TaskRepo {
	return &TaskRepo{db: db}
}

// taskSelect joins the owning project so DepartmentID is always populated.
// Soft-deleted tasks are never returned; callers append AND clauses.
const taskSelect = `SELECT t.id, t.project_id, p.department_id, t.title, t.description, t.state, t.priority,
        t.assignee_id, t.due_date, t.version, t.created_by, t.created_at, t.updated_at
 FROM tasks t JOIN projects p ON p.id = t.project_id
 WHERE t.deleted_at IS NULL`

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tasks (id, project_id, title, description, state, priority, assignee_id, due_date, version, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.ProjectID, t.Title, t.Description, t.State, t.Priority,
		t.AssigneeID, t.DueDate, t.Version, t.CreatedBy,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return mapErr("taskRepo.Create", err)
	}

	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, taskSelect+` AND t.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", err)
	}

	return t, nil
}

// GetForUpdate reads the task and locks its row until the surrounding
// transaction ends. Outside a transaction the lock is released immediately.
func (r *TaskRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, taskSelect+` AND t.id = $1 FOR UPDATE OF t`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("taskRepo.GetForUpdate: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetForUpdate: %w", err)
	}

	return t, nil
}

func (r *TaskRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Task, error) {
	rows, err := r.db.Query(ctx,
		taskSelect+` AND t.project_id = $1
		 ORDER BY t.created_at
		 LIMIT $2`,
		projectID, domain.ListLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.ListByProject: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows, "taskRepo.ListByProject")
}

// ListByAssignee filters by department in SQL when departmentID is set, so
// the limit only counts tasks the caller can see.
func (r *TaskRepo) ListByAssignee(ctx context.Context, assigneeID uuid.UUID, departmentID *uuid.UUID) ([]*domain.Task, error) {
	rows, err := r.db.Query(ctx,
		taskSelect+` AND t.assignee_id = $1
		   AND ($2::uuid IS NULL OR p.department_id = $2)
		 ORDER BY t.created_at
		 LIMIT $3`,
		assigneeID, departmentID, domain.ListLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.ListByAssignee: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows, "taskRepo.ListByAssignee")
}

// Update writes the editable fields. The row must still carry t.Version;
// on success t.Version is advanced to the stored value.
func (r *TaskRepo) Update(ctx context.Context, t *domain.Task) error {
	err := r.db.QueryRow(ctx,
		`UPDATE tasks SET title = $1, description = $2, priority = $3, assignee_id = $4, due_date = $5,
		        version = version + 1, updated_at = $6
		 WHERE id = $7 AND version = $8 AND deleted_at IS NULL
		 RETURNING version`,
		t.Title, t.Description, t.Priority, t.AssigneeID, t.DueDate, t.UpdatedAt,
		t.ID, t.Version,
	).Scan(&t.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.missingOrStale(ctx, t.ID, "taskRepo.Update")
	}
	if err != nil {
		return mapErr("taskRepo.Update", err)
	}

	return nil
}

// UpdateState writes only the state; version semantics match Update.
func (r *TaskRepo) UpdateState(ctx context.Context, t *domain.Task) error {
	err := r.db.QueryRow(ctx,
		`UPDATE tasks SET state = $1, version = version + 1, updated_at = $2
		 WHERE id = $3 AND version = $4 AND deleted_at IS NULL
		 RETURNING version`,
		t.State, t.UpdatedAt, t.ID, t.Version,
	).Scan(&t.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.missingOrStale(ctx, t.ID, "taskRepo.UpdateState")
	}
	if err != nil {
		return mapErr("taskRepo.UpdateState", err)
	}

	return nil
}

func (r *TaskRepo) missingOrStale(ctx context.Context, id uuid.UUID, caller string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1 AND deleted_at IS NULL)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("%s: %w", caller, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", caller, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: task %s was modified concurrently: %w", caller, id, domain.ErrConflict)
}

// Delete soft-deletes the task. Its history rows stay; the history table
// refuses deletes and its foreign key is RESTRICT.
func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tasks SET deleted_at = now(), version = version + 1 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return mapErr("taskRepo.Delete", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("taskRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	if err := row.Scan(
		&t.ID, &t.ProjectID, &t.DepartmentID, &t.Title, &t.Description, &t.State, &t.Priority,
		&t.AssigneeID, &t.DueDate, &t.Version, &t.CreatedBy,
		&t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTasks(rows pgx.Rows, caller string) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return tasks, nil
}
