// Package notify routes user notifications to the chat account linked on the
// user record.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskhub/internal/domain"
	"github.com/gosuda/taskhub/internal/messenger"
)

// ErrPlatformNotFound is returned when a messenger platform is not registered.
var ErrPlatformNotFound = errors.New("notify: platform not found") //nolint:gochecknoglobals // sentinel error

// UserLookup resolves a user's chat identities. domain.UserRepository
// satisfies it.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Notifier dispatches notifications to users through their linked messenger
// accounts. Users without a linked account are skipped silently.
type Notifier struct {
	users      UserLookup
	messengers map[string]messenger.Messenger
}

// New creates a Notifier delivering through the given messengers, keyed by
// their Platform().
func New(users UserLookup, messengers ...messenger.Messenger) *Notifier {
	n := &Notifier{users: users, messengers: make(map[string]messenger.Messenger, len(messengers))}
	for _, m := range messengers {
		n.messengers[m.Platform()] = m
	}
	return n
}

// Notify sends message to the user's Slack account if one is linked.
func (n *Notifier) Notify(ctx context.Context, userID uuid.UUID, message string) error {
	u, err := n.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("notify.Notifier.Notify: %w", err)
	}

	if u.SlackUserID == "" {
		log.Debug().Stringer("user_id", userID).Msg("notify: no slack account linked, skipping")
		return nil
	}

	return n.NotifyVia(ctx, "slack", u.SlackUserID, message)
}

// NotifyVia sends a notification using a specific platform and external ID directly.
func (n *Notifier) NotifyVia(ctx context.Context, platform, externalID, message string) error {
	m, ok := n.messengers[platform]
	if !ok {
		return fmt.Errorf("notify.Notifier.NotifyVia: platform %q: %w", platform, ErrPlatformNotFound)
	}

	if err := m.SendNotification(ctx, externalID, message); err != nil {
		return fmt.Errorf("notify.Notifier.NotifyVia: send: %w", err)
	}

	return nil
}
