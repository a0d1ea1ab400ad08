package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldcup-betting/internal/service"
)

type fakeSyncer struct {
	calls   atomic.Int32
	block   chan struct{}
	err     error
	sawDone atomic.Bool
}

func (f *fakeSyncer) Run(ctx context.Context) (*service.SyncReport, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			f.sawDone.Store(true)
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &service.SyncReport{Settled: []string{"m1"}}, nil
}

func TestTrigger_ReturnsReport(t *testing.T) {
	f := &fakeSyncer{}
	w := NewSyncWorker(f, time.Hour, time.Second)

	report, err := w.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, report.Settled)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestTrigger_RejectsOverlap(t *testing.T) {
	f := &fakeSyncer{block: make(chan struct{})}
	w := NewSyncWorker(f, time.Hour, time.Minute)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = w.Trigger(context.Background())
	}()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err := w.Trigger(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(f.block)
	<-done
}

func TestTrigger_AppliesDeadline(t *testing.T) {
	f := &fakeSyncer{block: make(chan struct{})}
	w := NewSyncWorker(f, time.Hour, 20*time.Millisecond)

	_, err := w.Trigger(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, f.sawDone.Load())
}

func TestStart_RunNowAndSwallowErrors(t *testing.T) {
	f := &fakeSyncer{err: errors.New("feed down")}
	w := NewSyncWorker(f, time.Hour, time.Second)

	require.NoError(t, w.Start(context.Background(), true))
	require.Eventually(t, func() bool { return f.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	w.Stop()
}

func TestStart_RunsOnInterval(t *testing.T) {
	f := &fakeSyncer{}
	w := NewSyncWorker(f, time.Second, time.Second)

	require.NoError(t, w.Start(context.Background(), false))
	defer w.Stop()

	require.Eventually(t, func() bool { return f.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}
