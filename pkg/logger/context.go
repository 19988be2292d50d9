package logger

import "context"

type ctxKey struct{}

// NewContext returns a copy of ctx carrying l. Components that log through
// FromContext then inherit its fields, such as a cycle's run id.
func NewContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger carried by ctx, or fallback when there is
// none. A nil fallback becomes a no-op logger.
func FromContext(ctx context.Context, fallback Logger) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok && l != nil {
		return l
	}
	if fallback == nil {
		return NewNopLogger()
	}
	return fallback
}
