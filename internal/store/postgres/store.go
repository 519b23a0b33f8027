// Package postgres implements the domain repositories on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/taskhub/internal/domain"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// runs unchanged inside or outside a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repos struct {
	departments *DepartmentRepo
	projects    *ProjectRepo
	tasks       *TaskRepo
	history     *HistoryRepo
	users       *UserRepo
	audit       *AuditRepo
}

func newRepos(db dbtx) repos {
	return repos{
		departments: NewDepartmentRepo(db),
		projects:    NewProjectRepo(db),
		tasks:       NewTaskRepo(db),
		history:     NewHistoryRepo(db),
		users:       NewUserRepo(db),
		audit:       NewAuditRepo(db),
	}
}

func (r repos) Departments() domain.DepartmentRepository { return r.departments }
func (r repos) Projects() domain.ProjectRepository       { return r.projects }
func (r repos) Tasks() domain.TaskRepository             { return r.tasks }
func (r repos) History() domain.StateHistoryRepository   { return r.history }
func (r repos) Users() domain.UserRepository             { return r.users }
func (r repos) Audit() domain.AuditRepository            { return r.audit }

type Store struct {
	repos

	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{repos: newRepos(pool), pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Ping is used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres.Store.Ping: %w", err)
	}
	return nil
}

// InTx runs fn in a read-committed transaction. fn's repositories share the
// transaction; row locks taken through TaskRepo.GetForUpdate are held until
// fn returns.
func (s *Store) InTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(newRepos(tx))
	})
	if err != nil {
		return fmt.Errorf("postgres.Store.InTx: %w", err)
	}
	return nil
}
