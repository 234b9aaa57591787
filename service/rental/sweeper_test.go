package rental

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type markerMock struct {
	calls atomic.Int64
	err   error
}

func (m *markerMock) MarkOverdueDue(ctx context.Context, now time.Time) (int64, error) {
	m.calls.Add(1)
	return 2, m.err
}

func TestSweeper_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	m := &markerMock{}
	s := NewSweeper(m, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.calls.Load() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}

func TestSweeper_SurvivesRepoErrors(t *testing.T) {
	m := &markerMock{err: errors.New("db down")}
	s := NewSweeper(m, time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	require.GreaterOrEqual(t, m.calls.Load(), int64(2))
}
