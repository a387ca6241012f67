// Package async runs long-lived background goroutines with panic recovery.
package async

import (
	"context"
	"fmt"

	"github.com/seamed/tracker/pkg/observability"
)

// Go runs fn in its own goroutine. A panic is recovered, logged with its stack
// and reported as an error; a returned error is logged. The channel receives
// the outcome once and is then closed.
func Go(ctx context.Context, logger *observability.Logger, name string, fn func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	logger = logger.WithField("task", name)

	go func() {
		defer close(done)
		err := run(ctx, logger, name, fn)
		if err != nil {
			logger.WithError(err).Error("background task failed")
		}
		done <- err
	}()

	return done
}

func run(ctx context.Context, logger *observability.Logger, name string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			observability.RecoverPanicValue(logger, name, r)
			err = fmt.Errorf("panic in %s: %v", name, r)
		}
	}()
	return fn(ctx)
}
