package db

import (
	"context"
	"time"
)

const DefaultOperationTimeout = 5 * time.Second

// WithTimeout bounds a store operation. A non-positive timeout falls back to
// DefaultOperationTimeout.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultOperationTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
