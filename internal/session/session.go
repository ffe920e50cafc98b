// Package session carries the authenticated principal through a request
// context.
package session

import (
	"context"
	"errors"
)

// ErrNoPrincipal reports a context without a principal.
var ErrNoPrincipal = errors.New("no principal in context")

// Principal identifies the caller and the organization they act in.
type Principal struct {
	OrganizationID string
	WorkerID       string
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored in ctx.
func FromContext(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.WorkerID == "" {
		return Principal{}, ErrNoPrincipal
	}
	return p, nil
}
