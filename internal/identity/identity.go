// Package identity resolves the caller identity of a request. Clerk session
// tokens (RS256) identify platform users; HS256 tokens issued by the account
// API identify legacy accounts. Handlers read the result with
// CallerFromContext.
package identity

import (
	"context"
	"errors"
)

var (
	ErrMissingToken = errors.New("identity: no token provided")
	ErrInvalidToken = errors.New("identity: invalid token")
	ErrForbidden    = errors.New("identity: forbidden")
)

// Source tells which token kind produced a Caller.
type Source string

const (
	SourceClerk  Source = "clerk"
	SourceLegacy Source = "legacy"
)

// Caller is an authenticated request identity. UserID is the opaque owner key
// used to scope records.
type Caller struct {
	UserID   string
	Email    string
	Roles    []string
	Metadata map[string]interface{}
	Source   Source
}

// Authenticator turns a bearer token into a Caller.
type Authenticator interface {
	Authenticate(token string) (*Caller, error)
}

type ctxKey struct{}

func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func CallerFromContext(ctx context.Context) (*Caller, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Caller)
	return c, ok && c != nil
}

// UserIDFromContext returns the caller's user ID, or "" when unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	if c, ok := CallerFromContext(ctx); ok {
		return c.UserID
	}
	return ""
}

// Reject refuses every token. It stands in for a token kind that is not
// configured.
type Reject struct{}

func (Reject) Authenticate(token string) (*Caller, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	return nil, ErrInvalidToken
}
