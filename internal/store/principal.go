package store

import (
	"context"
	"fmt"
	"gymdesk/internal/core"
	"strings"
)

var ErrNoPrincipal = fmt.Errorf("%w: no authenticated principal", core.ErrInvalidInput)

// PrincipalProvider returns the identity that writes are attributed to.
type PrincipalProvider interface {
	CurrentPrincipal(ctx context.Context) (string, error)
}

type principalKey struct{}

// WithPrincipal returns a context carrying the acting principal.
func WithPrincipal(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, principalKey{}, strings.TrimSpace(id))
}

// ContextPrincipal reads the principal set by WithPrincipal. Fallback is used
// when the context has none; an empty Fallback makes that an error.
type ContextPrincipal struct {
	Fallback string
}

func (p ContextPrincipal) CurrentPrincipal(ctx context.Context) (string, error) {
	if id, ok := ctx.Value(principalKey{}).(string); ok && id != "" {
		return id, nil
	}
	if p.Fallback != "" {
		return p.Fallback, nil
	}
	return "", ErrNoPrincipal
}
