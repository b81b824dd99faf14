// Package api implements the notely REST API using chi.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/identity"
	"github.com/starford/notely/internal/models"
	"github.com/starford/notely/internal/noteservice"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
	AuthModeJWT      = "jwt"
)

// AuthConfig selects how requests are attributed to a user.
//
//   - "disabled": every request acts as LocalUser, suitable for local dev.
//   - "token": a static Bearer token; holders act as LocalUser.
//   - "jwt": a Bearer JWT checked by Verifier; its subject is the user.
type AuthConfig struct {
	Mode      string
	Token     string
	LocalUser models.User
	Verifier  *identity.Verifier
}

// AuthMiddleware returns middleware that resolves the caller and stores it
// in the request context for handlers and the SSE broker.
func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticate(cfg, r)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), user)))
		})
	}
}

// WelcomeMiddleware seeds the welcome note for callers the store has not
// seen before. A failure is logged and the request goes on.
func WelcomeMiddleware(svc *noteservice.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, ok := identity.FromContext(r.Context()); ok {
				if _, err := svc.SeedWelcome(r.Context(), user.ID); err != nil {
					slog.Warn("seed welcome note failed",
						slog.String("user", user.ID), slog.String("error", err.Error()))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(cfg AuthConfig, r *http.Request) (models.User, error) {
	if cfg.Mode == AuthModeDisabled || cfg.Mode == "" {
		return cfg.LocalUser, nil
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return models.User{}, apperr.ErrUnauthorized
	}
	token := strings.TrimPrefix(auth, "Bearer ")

	switch cfg.Mode {
	case AuthModeToken:
		if token != cfg.Token {
			return models.User{}, apperr.ErrUnauthorized
		}
		return cfg.LocalUser, nil
	case AuthModeJWT:
		if cfg.Verifier == nil {
			return models.User{}, fmt.Errorf("%w: no verifier", apperr.ErrUnauthorized)
		}
		return cfg.Verifier.Verify(token)
	default:
		return models.User{}, fmt.Errorf("%w: unknown mode %q", apperr.ErrUnauthorized, cfg.Mode)
	}
}
