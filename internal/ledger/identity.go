package ledger

import "context"

// AnonymousSubmitter is recorded when no identity is attached to the context.
const AnonymousSubmitter = "anonymous"

type submitterKey struct{}

// WithSubmitter attaches the submitting identity to ctx.
func WithSubmitter(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, submitterKey{}, identity)
}

// SubmitterFrom returns the identity attached by WithSubmitter.
func SubmitterFrom(ctx context.Context) string {
	if id, ok := ctx.Value(submitterKey{}).(string); ok && id != "" {
		return id
	}
	return AnonymousSubmitter
}
