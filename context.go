package apartments

import (
	"context"

	"github.com/khaledahmed0918-sys/Apartments/session"
)

type clientIDContextKey struct{}
type clientIPContextKey struct{}

// WithClientID attaches the client identity to ctx. It selects the session
// slot used by Login, Logout and RestoreSession. Without it the engine uses
// session.DefaultSlot.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDContextKey{}, clientID)
}

// WithClientIP attaches the caller's IP address to ctx for audit records.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ClientIDFromContext returns the client identity in ctx, or
// session.DefaultSlot.
func ClientIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return session.DefaultSlot
	}

	clientID, _ := ctx.Value(clientIDContextKey{}).(string)
	if clientID == "" {
		return session.DefaultSlot
	}

	return clientID
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
