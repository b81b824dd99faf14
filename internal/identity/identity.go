// Package identity carries the authenticated user through request contexts
// and verifies the bearer tokens issued by the identity provider.
package identity

import (
	"context"

	"github.com/starford/notely/internal/models"
)

type ctxKey struct{}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the user stored by WithUser.
func FromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(models.User)
	return u, ok && u.ID != ""
}
