package health

import "context"

// ReadinessCheck is polled by the health server; a nil error means ready.
type ReadinessCheck interface {
	IsReady(ctx context.Context) error
	Name() string
}
