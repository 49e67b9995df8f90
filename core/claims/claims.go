// Package claims carries the authenticated caller through a request context.
package claims

import (
	"context"
	"errors"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

var ErrMissing = errors.New("claim value missing from context")

type Claims struct {
	UserID string
	Role   string
}

func (c Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CanRead reports whether the caller may read a record owned by ownerID.
// Administrators read everything.
func (c Claims) CanRead(ownerID string) bool {
	return c.IsAdmin() || (c.UserID != "" && c.UserID == ownerID)
}

type ctxKey int

const claimsKey ctxKey = 1

func Set(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func Get(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimsKey).(Claims)
	if !ok {
		return Claims{}, ErrMissing
	}
	return v, nil
}

// CanRead is Claims.CanRead for the caller in ctx. An anonymous caller
// reads nothing.
func CanRead(ctx context.Context, ownerID string) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}
	return c.CanRead(ownerID)
}
