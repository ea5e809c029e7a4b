package auth

import "context"

type contextKey string

const contextKeyClaims contextKey = "auth.claims"

// WithClaims stores the authenticated identity in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, contextKeyClaims, c)
}

// ClaimsFromContext returns the identity stored by the middleware, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(contextKeyClaims).(*Claims)
	return c
}

// UserIDFromContext returns the authenticated user's ID, or nil when the
// request is anonymous (auth disabled).
func UserIDFromContext(ctx context.Context) *int64 {
	c := ClaimsFromContext(ctx)
	if c == nil {
		return nil
	}
	id, err := c.UserID()
	if err != nil {
		return nil
	}
	return &id
}
