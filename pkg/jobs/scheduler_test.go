package jobs

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamed/tracker/pkg/observability"
)

func TestScheduler_AddInvalidSpec(t *testing.T) {
	s := NewScheduler(observability.NewLogger(observability.InfoLevel, &bytes.Buffer{}))

	err := s.Add("broken", "every now and then", time.Second, func(context.Context) error { return nil })
	assert.ErrorContains(t, err, "failed to schedule broken")
	assert.Zero(t, s.Len())
}

func TestScheduler_RunsJobs(t *testing.T) {
	logs := &bytes.Buffer{}
	s := NewScheduler(observability.NewLogger(observability.DebugLevel, logs))

	var runs atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1s", time.Second, func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		if !hasDeadline {
			return errors.New("missing deadline")
		}
		runs.Add(1)
		return nil
	}))
	require.NoError(t, s.Add("boom", "@every 1s", time.Second, func(context.Context) error {
		panic("kaboom")
	}))
	assert.Equal(t, 2, s.Len())

	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
