package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskhub/internal/auth"
	"github.com/gosuda/taskhub/internal/domain"
)

// UserLookup loads the current state of a token's subject.
// domain.UserRepository satisfies it.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Auth validates the bearer access token and stores the actor in the request
// context. Websocket clients that cannot set headers may pass the token as
// the access_token query parameter instead.
//
// With a non-nil users the actor is rebuilt from the stored user, so role and
// department changes apply to tokens already issued and deleted users are
// rejected. With nil the token's claims are used as issued.
func Auth(jwtSecret string, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractBearer(r)
			if tok == "" {
				tok = r.URL.Query().Get("access_token")
			}
			if tok == "" {
				unauthorized(w)
				return
			}

			claims, err := auth.ValidateAccessToken(jwtSecret, tok)
			if err != nil {
				log.Debug().Err(err).Msg("auth: rejected token")
				unauthorized(w)
				return
			}

			actor, err := claims.Actor()
			if err != nil {
				log.Debug().Err(err).Msg("auth: malformed claims")
				unauthorized(w)
				return
			}

			if users != nil {
				u, err := users.GetByID(r.Context(), actor.ID)
				switch {
				case errors.Is(err, domain.ErrNotFound):
					log.Debug().Str("user_id", actor.ID.String()).Msg("auth: token subject no longer exists")
					unauthorized(w)
					return
				case err != nil:
					log.Error().Err(err).Str("user_id", actor.ID.String()).Msg("auth: resolve actor")
					w.Header().Set("Content-Type", "application/problem+json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"title":"Internal Server Error","status":500,"detail":"could not resolve credentials"}`))
					return
				}
				actor = u.Actor()
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return header[7:]
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`))
}
