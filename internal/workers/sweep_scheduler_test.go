package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	n     int
	err   error
}

func (s *countingSweeper) Sweep(context.Context) (int, error) {
	s.calls.Add(1)
	return s.n, s.err
}

func TestParseSchedule(t *testing.T) {
	schedule, err := ParseSchedule("*/10 * * * *")
	require.NoError(t, err)

	from := time.Date(2025, 3, 1, 8, 3, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 1, 8, 10, 0, 0, time.UTC), schedule.Next(from))

	_, err = ParseSchedule("every ten minutes")
	assert.Error(t, err)

	_, err = ParseSchedule("0 */10 * * * *")
	assert.Error(t, err, "seconds are not accepted")
}

func TestSweepScheduler_RunOnce(t *testing.T) {
	sweeper := &countingSweeper{n: 2}
	s, err := NewSweepScheduler(sweeper, "0 * * * *", zerolog.Nop())
	require.NoError(t, err)

	s.RunOnce(context.Background())
	assert.EqualValues(t, 1, sweeper.calls.Load())

	sweeper.err = errors.New("database is locked")
	s.RunOnce(context.Background())
	assert.EqualValues(t, 2, sweeper.calls.Load(), "a failed sweep does not stop the scheduler")
}

func TestSweepScheduler_NextRun(t *testing.T) {
	s, err := NewSweepScheduler(&countingSweeper{}, "30 3 * * *", zerolog.Nop())
	require.NoError(t, err)

	from := time.Date(2025, 3, 1, 4, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 2, 3, 30, 0, 0, time.UTC), s.NextRun(from))
}

func TestSweepScheduler_RunStopsOnCancel(t *testing.T) {
	sweeper := &countingSweeper{}
	s, err := NewSweepScheduler(sweeper, "0 0 1 1 *", zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Zero(t, sweeper.calls.Load())
}
