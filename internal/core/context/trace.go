// Package appctx provides request-scoped context values.
package appctx

import (
	"context"
)

// TraceContext carries request correlation identifiers.
type TraceContext struct {
	TraceID   string
	RequestID string
}

type traceKey struct{}

// WithTrace adds trace context to the request context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceKey{}, trace)
}

// GetTrace returns trace context or nil.
func GetTrace(ctx context.Context) *TraceContext {
	if t, ok := ctx.Value(traceKey{}).(*TraceContext); ok {
		return t
	}
	return nil
}

// SubjectContext identifies the authenticated API caller.
type SubjectContext struct {
	Subject string
}

type subjectKey struct{}

// WithSubject adds the authenticated subject to the context.
func WithSubject(ctx context.Context, subject *SubjectContext) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// GetSubject returns the authenticated subject or nil.
func GetSubject(ctx context.Context) *SubjectContext {
	if s, ok := ctx.Value(subjectKey{}).(*SubjectContext); ok {
		return s
	}
	return nil
}
