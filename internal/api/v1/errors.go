package v1

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskhub/internal/domain"
	"github.com/gosuda/taskhub/internal/server/middleware"
)

// actorFrom returns the authenticated actor or a 401.
func actorFrom(ctx context.Context) (domain.Actor, error) {
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, huma.Error401Unauthorized("missing actor context")
	}
	return actor, nil
}

// toHTTPError maps service errors onto problem responses. msg is used for
// the 500 case; every other status carries the error text.
func toHTTPError(err error, msg string) error {
	var transition *domain.TransitionError
	switch {
	case errors.As(err, &transition):
		return huma.Error400BadRequest(transition.Error())
	case errors.Is(err, domain.ErrForbidden):
		return huma.Error403Forbidden(err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, domain.ErrValidation):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return huma.Error401Unauthorized(err.Error())
	}
	log.Error().Err(err).Msg(msg)
	return huma.Error500InternalServerError(msg)
}
