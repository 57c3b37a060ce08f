package userctx

import (
	"context"

	"github.com/ivmartynov/bookverse/internal/models"
)

type ctxKey string

const principalKey ctxKey = "principal"

// New returns a context carrying the verified principal
func New(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext extracts the principal bound by the auth middleware
func FromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	return p, ok
}
