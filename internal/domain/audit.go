package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AuditEntry struct {
	ID         uuid.UUID      `json:"id"`
	ActorID    *uuid.UUID     `json:"actor_id,omitempty"` // nil for system actions
	Action     string         `json:"action"`
	Resource   string         `json:"resource"` // "task", "project", "department", "user"
	ResourceID uuid.UUID      `json:"resource_id"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

type AuditRepository interface {
	Record(ctx context.Context, entry *AuditEntry) error
	List(ctx context.Context, limit, offset int) ([]*AuditEntry, error)
	ListByResource(ctx context.Context, resource string, resourceID uuid.UUID) ([]*AuditEntry, error)
}
