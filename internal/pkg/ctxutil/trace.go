package ctxutil

import "context"

type traceDataKey struct{}

// TraceData rides on the request context. ResourceKind and ResourceID name
// the book, chapter, section, asset or job the route addresses, when any.
type TraceData struct {
	TraceID      string
	RequestID    string
	ResourceKind string
	ResourceID   string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}
