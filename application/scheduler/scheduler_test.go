package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

const waitFor = 2 * time.Second
const pollEvery = 5 * time.Millisecond

func TestJobRunsImmediatelyThenEveryInterval(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock)

	runs := atomic.NewInt32(0)
	s.Register(&Job{
		Name:     "refresh",
		Schedule: Every(30 * time.Second).Immediately(),
		Handler: func(ctx context.Context) error {
			runs.Inc()
			return nil
		},
	})
	s.Start()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, waitFor, pollEvery)

	mock.Add(29 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load(), "no tick before the interval")

	mock.Add(time.Second)
	require.Eventually(t, func() bool { return runs.Load() == 2 }, waitFor, pollEvery)

	mock.Add(30 * time.Second)
	require.Eventually(t, func() bool { return runs.Load() == 3 }, waitFor, pollEvery)

	s.Stop()
	mock.Add(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), runs.Load(), "no runs after Stop")

	status := s.Jobs()
	require.Len(t, status, 1)
	assert.Equal(t, 3, status[0].Runs)
	assert.Equal(t, "30s", status[0].Interval)
}

func TestJobWithoutImmediateWaitsForTick(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock)

	runs := atomic.NewInt32(0)
	s.Register(&Job{
		Name:     "probe",
		Schedule: Every(time.Minute),
		Handler: func(ctx context.Context) error {
			runs.Inc()
			return nil
		},
	})
	s.Start()
	defer s.Stop()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())

	mock.Add(time.Minute)
	require.Eventually(t, func() bool { return runs.Load() == 1 }, waitFor, pollEvery)
}

func TestFailedRunIsRetriedAtNextTick(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock)

	runs := atomic.NewInt32(0)
	s.Register(&Job{
		Name:     "refresh",
		Schedule: Every(30 * time.Second).Immediately(),
		Handler: func(ctx context.Context) error {
			runs.Inc()
			return errors.New("upstream down")
		},
	})
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, waitFor, pollEvery)
	require.Eventually(t, func() bool { return s.Jobs()[0].LastErr == "upstream down" }, waitFor, pollEvery)

	mock.Add(30 * time.Second)
	require.Eventually(t, func() bool { return runs.Load() == 2 }, waitFor, pollEvery)
}

func TestStopIsIdempotent(t *testing.T) {
	s := New(clock.NewMock())
	s.Start()
	s.Stop()
	assert.NotPanics(t, s.Stop)
}
