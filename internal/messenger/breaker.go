package messenger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects deliveries.
var ErrCircuitOpen = errors.New("messenger: circuit breaker is open") //nolint:gochecknoglobals // sentinel error

// BreakerConfig controls when a Guarded messenger stops calling the platform.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before a trial request is allowed.
	OpenTimeout time.Duration
}

// Guarded wraps a Messenger with a circuit breaker so a failing platform
// fails fast instead of stalling every request that triggers a notification.
type Guarded struct {
	next    Messenger
	breaker *gobreaker.CircuitBreaker
}

var _ Messenger = (*Guarded)(nil) //nolint:gochecknoglobals // compile-time check

// NewGuarded returns next behind a breaker named after its platform.
func NewGuarded(next Messenger, cfg BreakerConfig) *Guarded {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	settings := gobreaker.Settings{
		Name:        next.Platform(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("platform", name).Str("from", from.String()).Str("to", to.String()).Msg("messenger breaker state changed")
		},
	}

	return &Guarded{next: next, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (g *Guarded) SendNotification(ctx context.Context, userExternalID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := g.breaker.Execute(func() (any, error) {
		return nil, g.next.SendNotification(ctx, userExternalID, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("messenger.Guarded.SendNotification: %s: %w", g.next.Platform(), ErrCircuitOpen)
	}
	return err
}

func (g *Guarded) Platform() string {
	return g.next.Platform()
}

// State reports the breaker state: "closed", "half-open" or "open".
func (g *Guarded) State() string {
	return g.breaker.State().String()
}
