package contxt

import (
	"context"
	"time"
)

// NewContext returns a self-cancelling context for one-shot maintenance
// operations that must not hang forever.
func NewContext(timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ctx
}
