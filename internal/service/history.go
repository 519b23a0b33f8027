package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/taskhub/internal/domain"
)

// HistoryRecorder appends state history entries. It performs no
// authorization of its own; callers have already decided the change is
// allowed and pass the repository bound to their transaction.
type HistoryRecorder struct {
	now func() time.Time
}

func NewHistoryRecorder(now func() time.Time) HistoryRecorder {
	if now == nil {
		now = time.Now
	}
	return HistoryRecorder{now: now}
}

// Record appends one entry. oldState is nil for the creation entry; a blank
// reason is stored as nil.
func (h HistoryRecorder) Record(
	ctx context.Context,
	repo domain.StateHistoryRepository,
	taskID uuid.UUID,
	oldState *domain.TaskState,
	newState domain.TaskState,
	reason string,
	changedBy *uuid.UUID,
) (*domain.StateHistoryEntry, error) {
	e := &domain.StateHistoryEntry{
		ID:        uuid.New(),
		TaskID:    taskID,
		NewState:  newState,
		ChangedAt: h.now(),
	}
	if oldState != nil {
		old := *oldState
		e.OldState = &old
	}
	if r := strings.TrimSpace(reason); r != "" {
		e.Reason = &r
	}
	if changedBy != nil {
		by := *changedBy
		e.ChangedBy = &by
	}

	if err := repo.Append(ctx, e); err != nil {
		return nil, fmt.Errorf("service.HistoryRecorder.Record: task %s: %w", taskID, err)
	}
	return e, nil
}
