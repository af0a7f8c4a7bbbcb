package application_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bidwatch/internal/application"
	"github.com/ericfisherdev/bidwatch/internal/domain/model"
	"github.com/ericfisherdev/bidwatch/internal/domain/port/driven"
)

type mockRunner struct {
	calls   atomic.Int32
	running atomic.Bool
	err     error
}

func (m *mockRunner) RunScraper(_ context.Context) (model.RunResult, error) {
	m.calls.Add(1)
	if m.err != nil {
		return model.RunResult{}, m.err
	}
	return model.RunResult{Success: true}, nil
}

func (m *mockRunner) IsRunning() bool { return m.running.Load() }

func TestScheduler_TicksOnInterval(t *testing.T) {
	runner := &mockRunner{}
	s := application.NewScheduler(runner, 10*time.Millisecond, false)

	s.Start(context.Background())
	defer s.Stop()

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_RunOnStart(t *testing.T) {
	runner := &mockRunner{}
	s := application.NewScheduler(runner, time.Hour, true)

	s.Start(context.Background())
	defer s.Stop()

	assert.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_SkipsTickWhileRunning(t *testing.T) {
	runner := &mockRunner{}
	runner.running.Store(true)
	s := application.NewScheduler(runner, 5*time.Millisecond, true)

	s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	assert.Zero(t, runner.calls.Load(), "cycles fired during an active run are skipped")
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	runner := &mockRunner{}
	s := application.NewScheduler(runner, time.Hour, false)

	s.Stop()
	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()
	s.Stop()

	assert.Zero(t, runner.calls.Load())
}

func TestScheduler_StopsWhenContextCanceled(t *testing.T) {
	runner := &mockRunner{}
	s := application.NewScheduler(runner, 5*time.Millisecond, false)
	ctx, cancel := context.WithCancel(context.Background())

	s.Start(ctx)
	require.Eventually(t, func() bool { return runner.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	s.Stop()

	after := runner.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runner.calls.Load())
}

func TestScheduler_RunManualPropagatesAlreadyRunning(t *testing.T) {
	runner := &mockRunner{err: application.ErrAlreadyRunning}
	s := application.NewScheduler(runner, time.Hour, false)

	_, err := s.RunManual(context.Background())

	assert.ErrorIs(t, err, application.ErrAlreadyRunning)
}

func TestScheduler_RunManualOutlivesCallerCancel(t *testing.T) {
	f := newOrchestratorFixture(metroCred, septaCred)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.setAdapter(model.PortalTypePublic, func(_ context.Context, _ driven.Page, _ model.Credential) ([]model.Bid, error) {
		cancel()
		return bidsFor("Metro", time.Now(), "metro_a"), nil
	})
	septaCalled := false
	f.setAdapter(model.PortalTypeAuthenticated, func(runCtx context.Context, _ driven.Page, _ model.Credential) ([]model.Bid, error) {
		septaCalled = true
		assert.NoError(t, runCtx.Err())
		return bidsFor("SEPTA", time.Now(), "septa_a"), nil
	})
	s := application.NewScheduler(f.orch, time.Hour, false)

	result, err := s.RunManual(ctx)

	require.NoError(t, err)
	assert.True(t, septaCalled)
	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, result.NewBids)
}

func TestScheduler_Status(t *testing.T) {
	runner := &mockRunner{}
	s := application.NewScheduler(runner, 0, false)

	status := s.Status()
	assert.False(t, status.IsRunning)
	assert.Equal(t, "Every 15 minutes", status.Schedule)

	runner.running.Store(true)
	assert.True(t, s.Status().IsRunning)
}

func TestDescribeInterval(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{15 * time.Minute, "Every 15 minutes"},
		{time.Minute, "Every minute"},
		{time.Hour, "Every hour"},
		{6 * time.Hour, "Every 6 hours"},
		{90 * time.Minute, "Every 90 minutes"},
		{30 * time.Second, "Every 30s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, application.DescribeInterval(tt.in))
	}
}

// A manual run requested while a real orchestrated run is in flight is
// rejected without opening another browser session.
func TestScheduler_ManualRunRejectedDuringActiveRun(t *testing.T) {
	f := newOrchestratorFixture(metroCred)
	entered := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once
	f.setAdapter(model.PortalTypePublic, func(_ context.Context, _ driven.Page, _ model.Credential) ([]model.Bid, error) {
		once.Do(func() { close(entered) })
		<-unblock
		return nil, nil
	})
	s := application.NewScheduler(f.orch, time.Hour, true)

	s.Start(context.Background())
	<-entered

	assert.True(t, s.Status().IsRunning)
	_, err := s.RunManual(context.Background())
	assert.ErrorIs(t, err, application.ErrAlreadyRunning)
	assert.Equal(t, 1, f.factory.Sessions())

	close(unblock)
	s.Stop()
	assert.False(t, s.Status().IsRunning)
}
