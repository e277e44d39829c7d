package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcessor counts ProcessBatch calls, signals when a batch starts and
// blocks each batch until released (or until its context ends, unless
// ignoreCtx is set).
type fakeProcessor struct {
	calls     int32
	err       error
	ignoreCtx bool

	started chan struct{}
	mu      sync.Mutex
	block   chan struct{}
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		started: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}
}

func (f *fakeProcessor) ProcessBatch(ctx context.Context) error {
	atomic.AddInt32(&f.calls, 1)

	select {
	case f.started <- struct{}{}:
	default:
	}

	f.mu.Lock()
	block := f.block
	f.mu.Unlock()

	if f.ignoreCtx {
		<-block
		return f.err
	}
	select {
	case <-block:
	case <-ctx.Done():
	}
	return f.err
}

func (f *fakeProcessor) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.block)
}

func (f *fakeProcessor) rearm() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block = make(chan struct{})
}

func waitStarted(t *testing.T, f *fakeProcessor) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("ProcessBatch was not called in time")
	}
}

func TestScheduler_StartTriggersBatch(t *testing.T) {
	fake := newFakeProcessor()
	s := NewSchedulerService(fake, 10*time.Millisecond, 2*time.Second, zerolog.Nop())

	require.NoError(t, s.Start())
	defer func() {
		fake.release()
		_ = s.Stop()
	}()

	waitStarted(t, fake)
	assert.True(t, s.IsRunning())
}

func TestScheduler_NotRunningUntilStarted(t *testing.T) {
	fake := newFakeProcessor()
	s := NewSchedulerService(fake, 5*time.Millisecond, time.Second, zerolog.Nop())

	time.Sleep(30 * time.Millisecond)
	assert.False(t, s.IsRunning())
	assert.Zero(t, atomic.LoadInt32(&fake.calls))

	// Stopping an idle scheduler is acknowledged right away.
	assert.NoError(t, s.Stop())
}

func TestScheduler_StopWaitsForBatchCompletion(t *testing.T) {
	fake := newFakeProcessor()
	s := NewSchedulerService(fake, 5*time.Millisecond, 2*time.Second, zerolog.Nop())

	require.NoError(t, s.Start())
	waitStarted(t, fake)

	done := make(chan error, 1)
	go func() { done <- s.Stop() }()

	select {
	case <-done:
		t.Fatalf("Stop() returned before batch finished")
	case <-time.After(50 * time.Millisecond):
	}

	fake.release()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("Stop() did not return after batch completion")
	}
	assert.False(t, s.IsRunning())
}

func TestScheduler_StopOutlastsControlTimeout(t *testing.T) {
	fake := newFakeProcessor()
	s := newScheduler(fake, 5*time.Millisecond, time.Second, 20*time.Millisecond, zerolog.Nop())

	require.NoError(t, s.Start())
	waitStarted(t, fake)

	done := make(chan error, 1)
	go func() { done <- s.Stop() }()

	// Keep the batch running well past the control timeout.
	time.Sleep(100 * time.Millisecond)
	fake.release()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("Stop() did not return after batch completion")
	}
	assert.False(t, s.IsRunning())
}

func TestScheduler_StopGivesUpOnOverrunningBatch(t *testing.T) {
	fake := newFakeProcessor()
	// The batch ignores cancellation, so it outlives its timeout.
	fake.ignoreCtx = true
	s := newScheduler(fake, 5*time.Millisecond, 20*time.Millisecond, 20*time.Millisecond, zerolog.Nop())

	require.NoError(t, s.Start())
	waitStarted(t, fake)

	err := s.Stop()
	assert.ErrorContains(t, err, "acknowledgement timeout")

	fake.release()
}

func TestScheduler_StartStopStartFlow(t *testing.T) {
	fake := newFakeProcessor()
	s := NewSchedulerService(fake, 10*time.Millisecond, 2*time.Second, zerolog.Nop())

	require.NoError(t, s.Start())
	waitStarted(t, fake)
	fake.release()

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())

	fake.rearm()
	// Drain a signal left over from batches that ran after release.
	select {
	case <-fake.started:
	default:
	}

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	waitStarted(t, fake)

	fake.release()
	require.NoError(t, s.Stop())
}

func TestScheduler_BatchTimeoutBoundsBatch(t *testing.T) {
	fake := newFakeProcessor()
	s := NewSchedulerService(fake, 5*time.Millisecond, 20*time.Millisecond, zerolog.Nop())

	require.NoError(t, s.Start())
	waitStarted(t, fake)

	// The batch never gets released; its context timeout ends it and Stop returns.
	assert.NoError(t, s.Stop())
}

func TestScheduler_LogsBatchFailure(t *testing.T) {
	var buf syncBuffer
	fake := newFakeProcessor()
	fake.err = errors.New("gateway down")
	fake.release()

	s := NewSchedulerService(fake, 5*time.Millisecond, time.Second, zerolog.New(&buf))
	require.NoError(t, s.Start())

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&fake.calls) >= 2
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())

	assert.Contains(t, buf.String(), "batch failed")
	assert.Contains(t, buf.String(), "gateway down")
}

func TestScheduler_RaceStartStop(t *testing.T) {
	fake := newFakeProcessor()
	s := NewSchedulerService(fake, 5*time.Millisecond, 50*time.Millisecond, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Start()
		}()
		go func() {
			defer wg.Done()
			_ = s.Stop()
		}()
	}
	wg.Wait()
}

// syncBuffer is a bytes.Buffer safe for the scheduler goroutine to write
// while the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
