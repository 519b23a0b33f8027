// Package messenger delivers short user notifications over chat platforms.
package messenger

import "context"

// Messenger abstracts a chat platform (currently Slack). Implementations
// handle the platform API; callers only know the user's external ID.
type Messenger interface {
	// SendNotification sends a direct message to a user by their external
	// platform ID (e.g. Slack member ID).
	SendNotification(ctx context.Context, userExternalID, text string) error

	// Platform returns the messenger platform identifier (e.g. "slack").
	Platform() string
}
