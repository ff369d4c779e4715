// Package requestid carries a request's correlation ID through the context,
// so every log line a scan emits can be tied back to the HTTP request that
// triggered it.
package requestid

import "context"

type ctxKey struct{}

// NewContext returns a context carrying the given correlation ID.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the correlation ID stored in ctx, or an empty string
// for work that did not originate from an HTTP request.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
