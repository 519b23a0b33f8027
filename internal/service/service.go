// Package service holds the authorized use cases. Every operation takes the
// calling domain.Actor explicitly, resolves the target resource, asks
// internal/authz for a decision and only then validates and writes inside a
// single DataStore transaction. Side effects (audit, board events, chat
// notifications) run after commit and never undo the mutation.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskhub/internal/domain"
)

// DataStore is the persistence surface the services need.
// *postgres.Store satisfies this interface.
type DataStore interface {
	domain.Repositories

	// InTx runs fn inside one transaction. The repositories handed to fn are
	// bound to the transaction; fn returning an error rolls it back.
	InTx(ctx context.Context, fn func(tx domain.Repositories) error) error
}

// EventPublisher fans board events out to live subscribers.
// *redis.PubSub satisfies this interface.
type EventPublisher interface {
	PublishBoardEvent(ctx context.Context, ev *domain.BoardEvent) error
}

// Notifier pushes a short message to a user.
// *notify.Notifier satisfies this interface.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, message string) error
}

type Option func(*base)

func WithEvents(p EventPublisher) Option {
	return func(b *base) { b.events = p }
}

func WithNotifier(n Notifier) Option {
	return func(b *base) { b.notifier = n }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

type base struct {
	store    DataStore
	events   EventPublisher
	notifier Notifier
	now      func() time.Time
}

func newBase(store DataStore, opts []Option) base {
	b := base{store: store, now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) audit(ctx context.Context, actor domain.Actor, action, resource string, resourceID uuid.UUID, details map[string]any) {
	actorID := actor.ID
	entry := &domain.AuditEntry{
		ID:         uuid.New(),
		ActorID:    &actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		CreatedAt:  b.now(),
	}
	if err := b.store.Audit().Record(ctx, entry); err != nil {
		log.Warn().Err(err).
			Str("action", action).
			Str("resource", resource).
			Stringer("resource_id", resourceID).
			Msg("audit record failed")
	}
}

func (b *base) publish(ctx context.Context, actor domain.Actor, typ domain.BoardEventType, t *domain.Task) {
	if b.events == nil {
		return
	}
	ev := &domain.BoardEvent{
		Type:         typ,
		DepartmentID: t.DepartmentID,
		ProjectID:    t.ProjectID,
		TaskID:       t.ID,
		ActorID:      actor.ID,
		OccurredAt:   b.now(),
	}
	if typ != domain.BoardEventTaskDeleted {
		ev.Task = t
	}
	if err := b.events.PublishBoardEvent(ctx, ev); err != nil {
		log.Warn().Err(err).
			Str("type", string(typ)).
			Stringer("task_id", t.ID).
			Msg("board event publish failed")
	}
}

// notify messages userID unless the actor is the recipient.
func (b *base) notify(ctx context.Context, actor domain.Actor, userID *uuid.UUID, message string) {
	if b.notifier == nil || userID == nil || *userID == actor.ID {
		return
	}
	if err := b.notifier.Notify(ctx, *userID, message); err != nil {
		log.Warn().Err(err).Stringer("user_id", *userID).Msg("notification failed")
	}
}

func checkVersion(t *domain.Task, expected *int64) error {
	if expected != nil && *expected != t.Version {
		return fmt.Errorf("task %s: version is %d, expected %d: %w", t.ID, t.Version, *expected, domain.ErrConflict)
	}
	return nil
}
