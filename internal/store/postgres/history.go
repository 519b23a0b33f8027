package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/taskhub/internal/domain"
)

// HistoryRepo is append-only; the table rejects UPDATE and DELETE with a
// trigger. Entries of soft-deleted tasks stay readable.
type HistoryRepo struct {
	db dbtx
}

func NewHistoryRepo(db dbtx) *HistoryRepo {
	return &HistoryRepo{db: db}
}

const historySelect = `SELECT h.id, h.seq, h.task_id, p.department_id, h.old_state, h.new_state, h.reason, h.changed_at, h.changed_by
 FROM task_state_history h
 JOIN tasks t ON t.id = h.task_id
 JOIN projects p ON p.id = t.project_id`

const historyOrder = ` ORDER BY h.changed_at DESC, h.seq DESC`

// Append inserts e and fills in its Seq.
func (r *HistoryRepo) Append(ctx context.Context, e *domain.StateHistoryEntry) error {
	var oldState *string
	if e.OldState != nil {
		s := string(*e.OldState)
		oldState = &s
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO task_state_history (id, task_id, old_state, new_state, reason, changed_at, changed_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING seq`,
		e.ID, e.TaskID, oldState, string(e.NewState), e.Reason, e.ChangedAt, e.ChangedBy,
	).Scan(&e.Seq)
	if err != nil {
		return mapErr("historyRepo.Append", err)
	}

	return nil
}

func (r *HistoryRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.StateHistoryEntry, error) {
	return r.list(ctx, "historyRepo.ListByTask", historySelect+` WHERE h.task_id = $1`+historyOrder, taskID)
}

func (r *HistoryRepo) ListByChangedBy(ctx context.Context, actorID uuid.UUID, departmentID *uuid.UUID) ([]*domain.StateHistoryEntry, error) {
	return r.scoped(ctx, "historyRepo.ListByChangedBy", `h.changed_by = $1`, departmentID, actorID)
}

func (r *HistoryRepo) ListByOldState(ctx context.Context, state domain.TaskState, departmentID *uuid.UUID) ([]*domain.StateHistoryEntry, error) {
	return r.scoped(ctx, "historyRepo.ListByOldState", `h.old_state = $1`, departmentID, string(state))
}

func (r *HistoryRepo) ListByNewState(ctx context.Context, state domain.TaskState, departmentID *uuid.UUID) ([]*domain.StateHistoryEntry, error) {
	return r.scoped(ctx, "historyRepo.ListByNewState", `h.new_state = $1`, departmentID, string(state))
}

// ListByTimeRange includes both bounds.
func (r *HistoryRepo) ListByTimeRange(ctx context.Context, from, to time.Time, departmentID *uuid.UUID) ([]*domain.StateHistoryEntry, error) {
	return r.scoped(ctx, "historyRepo.ListByTimeRange", `h.changed_at BETWEEN $1 AND $2`, departmentID, from, to)
}

// scoped appends the department predicate before ordering and limiting, so
// rows of other departments never take up the limit.
func (r *HistoryRepo) scoped(ctx context.Context, caller, where string, departmentID *uuid.UUID, args ...any) ([]*domain.StateHistoryEntry, error) {
	query := historySelect + ` WHERE ` + where
	if departmentID != nil {
		args = append(args, *departmentID)
		query += fmt.Sprintf(` AND p.department_id = $%d`, len(args))
	}
	query += historyOrder + fmt.Sprintf(` LIMIT %d`, domain.ListLimit)

	return r.list(ctx, caller, query, args...)
}

func (r *HistoryRepo) list(ctx context.Context, caller, query string, args ...any) ([]*domain.StateHistoryEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", caller, err)
	}
	defer rows.Close()

	return scanHistory(rows, caller)
}

func scanHistory(rows pgx.Rows, caller string) ([]*domain.StateHistoryEntry, error) {
	var entries []*domain.StateHistoryEntry
	for rows.Next() {
		var (
			e        domain.StateHistoryEntry
			oldState *string
			newState string
		)
		if err := rows.Scan(
			&e.ID, &e.Seq, &e.TaskID, &e.DepartmentID, &oldState, &newState,
			&e.Reason, &e.ChangedAt, &e.ChangedBy,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		if oldState != nil {
			s := domain.TaskState(*oldState)
			e.OldState = &s
		}
		e.NewState = domain.TaskState(newState)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return entries, nil
}
