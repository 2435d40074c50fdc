package testutil

import (
	"context"
	"testing"
	"time"
)

// ContextWithTimeout возвращает context, ограниченный duration и отменяемый в t.Cleanup.
func ContextWithTimeout(t testing.TB, duration time.Duration) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	t.Cleanup(cancel)

	return ctx
}

// ContextWithCancel возвращает context с cancel. Cleanup отменяет его, если тест не сделал это сам.
func ContextWithCancel(t testing.TB) (context.Context, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return ctx, cancel
}
