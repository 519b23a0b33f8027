// Package ws streams project board and department events to websocket
// clients.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskhub/internal/authz"
	"github.com/gosuda/taskhub/internal/domain"
	"github.com/gosuda/taskhub/internal/server/middleware"
	redisstore "github.com/gosuda/taskhub/internal/store/redis"
)

// BoardSource loads a project board on behalf of an actor and enforces the
// actor's right to see it.
type BoardSource interface {
	Board(ctx context.Context, actor domain.Actor, projectID uuid.UUID) (*domain.Project, []*domain.Task, error)
}

// Subscriber is the pub/sub side of the hub; *redisstore.PubSub implements it.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Hub manages WebSocket connections backed by Redis pub/sub.
type Hub struct {
	boards BoardSource
	sub    Subscriber
}

func NewHub(boards BoardSource, sub Subscriber) *Hub {
	return &Hub{boards: boards, sub: sub}
}

// snapshot is the first message on every board connection.
type snapshot struct {
	Type    string          `json:"type"`
	Project *domain.Project `json:"project"`
	Tasks   []*domain.Task  `json:"tasks"`
}

// ServeBoard handles WebSocket connections for a project board. The client
// first receives a snapshot of the board, then every domain.BoardEvent
// published on the board's Redis channel.
func (h *Hub) ServeBoard(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}

	project, tasks, err := h.boards.Board(r.Context(), actor, projectID)
	switch {
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "project not found", http.StatusNotFound)
		return
	case err != nil:
		log.Error().Err(err).Str("project_id", projectID.String()).Msg("websocket board load")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	messages, cleanup, err := h.sub.Subscribe(ctx, redisstore.BoardChannel(project.DepartmentID, project.ID))
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	first, err := json.Marshal(snapshot{Type: "board_snapshot", Project: project, Tasks: tasks})
	if err != nil {
		log.Error().Err(err).Msg("websocket snapshot encode")
		_ = conn.Close(websocket.StatusInternalError, "snapshot failed")
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, first); err != nil {
		log.Debug().Err(err).Msg("websocket write")
		return
	}

	pump(ctx, conn, messages)
}

// ServeDepartment streams every board event of one department. It requires
// ActionViewTask on the department and sends no snapshot.
func (h *Hub) ServeDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	departmentID, err := uuid.Parse(chi.URLParam(r, "departmentID"))
	if err != nil {
		http.Error(w, "invalid department id", http.StatusBadRequest)
		return
	}
	if err := authz.Authorize(actor, authz.ActionViewTask, authz.DepartmentResource(departmentID)); err != nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	messages, cleanup, err := h.sub.Subscribe(ctx, redisstore.DepartmentChannel(departmentID))
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	pump(ctx, conn, messages)
}

// pump forwards messages to conn until the request ends or the channel
// closes.
func pump(ctx context.Context, conn *websocket.Conn, messages <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
