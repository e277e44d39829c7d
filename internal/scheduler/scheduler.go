package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// BatchProcessor drains the outbox. The scheduler calls ProcessBatch on a
// fixed interval.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context) error
}

// SchedulerService exposes a small control surface for the scheduler.
// Start/Stop are synchronous controls, and IsRunning reports
// whether the scheduler is currently accepting ticks.
type SchedulerService interface {
	Start() error
	Stop() error
	IsRunning() bool
}

// DefaultInterval is used when no custom interval is provided.
const DefaultInterval = 2 * time.Minute

// DefaultBatchTimeout bounds a single batch when no timeout is configured.
const DefaultBatchTimeout = 30 * time.Second

// defaultControlTimeout bounds how long Start/Stop wait for the control
// loop. A Stop that lands mid-batch also waits out the batch timeout.
const defaultControlTimeout = 2 * time.Second

type controlOp int

const (
	opStart controlOp = iota
	opStop
	opStatus
)

// controlMsg is sent over the ctrl channel to drive the scheduler's state.
// resp is buffered so the loop never blocks on a caller that gave up.
type controlMsg struct {
	op   controlOp
	resp chan bool
}

// schedulerService owns the internal state and runs the control loop.
// All mutable state lives in the loop goroutine, so we don't need locks.
type schedulerService struct {
	processor      BatchProcessor
	interval       time.Duration
	batchTimeout   time.Duration
	controlTimeout time.Duration
	ctrl           chan controlMsg
	log            zerolog.Logger
}

// NewSchedulerService creates a new scheduler with the given interval
// and batch timeout. If any of them is <= 0, defaults are used instead.
// The scheduler starts idle; call Start to begin processing.
func NewSchedulerService(
	processor BatchProcessor,
	interval time.Duration,
	batchTimeout time.Duration,
	log zerolog.Logger,
) SchedulerService {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if batchTimeout <= 0 {
		batchTimeout = DefaultBatchTimeout
	}
	return newScheduler(processor, interval, batchTimeout, defaultControlTimeout, log)
}

func newScheduler(
	processor BatchProcessor,
	interval, batchTimeout, controlTimeout time.Duration,
	log zerolog.Logger,
) *schedulerService {
	s := &schedulerService{
		processor:      processor,
		interval:       interval,
		batchTimeout:   batchTimeout,
		controlTimeout: controlTimeout,
		ctrl:           make(chan controlMsg),
		log:            log,
	}

	go s.loop()

	return s
}

// Start tells the scheduler to begin processing ticks.
func (s *schedulerService) Start() error {
	return s.send(opStart, "start")
}

// Stop tells the scheduler to stop accepting new ticks. If a batch is in
// flight, Stop returns once it has finished. It waits up to the batch
// timeout plus the control timeout and reports an error if the batch
// outlives that.
func (s *schedulerService) Stop() error {
	return s.send(opStop, "stop")
}

// IsRunning reports whether the scheduler is in "running" mode. It does not
// mean a batch is executing, only that new ticks will be processed.
func (s *schedulerService) IsRunning() bool {
	resp := make(chan bool, 1)
	s.ctrl <- controlMsg{op: opStatus, resp: resp}
	return <-resp
}

func (s *schedulerService) send(op controlOp, name string) error {
	msg := controlMsg{op: op, resp: make(chan bool, 1)}

	select {
	case s.ctrl <- msg:
	case <-time.After(s.controlTimeout):
		return fmt.Errorf("scheduler %s: control loop not responding", name)
	}

	// A stop is acknowledged only after any in-flight batch ends.
	wait := s.controlTimeout
	if op == opStop {
		wait += s.batchTimeout
	}

	select {
	case <-msg.resp:
		return nil
	case <-time.After(wait):
		return fmt.Errorf("scheduler %s: acknowledgement timeout", name)
	}
}

// loop reacts to control messages, timer ticks and batch completions.
// A batch runs in its own goroutine; batchDone is non-nil while it does.
func (s *schedulerService) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var (
		running      bool
		batchDone    chan error
		batchStart   time.Time
		pendingStops []chan bool
	)

	for {
		select {
		case msg := <-s.ctrl:
			switch msg.op {
			case opStart:
				if !running {
					s.log.Info().
						Dur("interval", s.interval).
						Dur("batch_timeout", s.batchTimeout).
						Msg("scheduler started")
				}
				running = true
				msg.resp <- true

			case opStop:
				if running {
					s.log.Info().Bool("in_batch", batchDone != nil).Msg("stop requested")
				}
				running = false

				if batchDone != nil {
					pendingStops = append(pendingStops, msg.resp)
					continue
				}
				msg.resp <- true

			case opStatus:
				msg.resp <- running
			}

		case <-ticker.C:
			if !running || batchDone != nil {
				continue
			}

			batchDone = make(chan error, 1)
			batchStart = time.Now()
			go s.runBatch(batchDone)

		case err := <-batchDone:
			if err != nil {
				s.log.Error().Err(err).Dur("duration", time.Since(batchStart)).Msg("batch failed")
			} else {
				s.log.Debug().Dur("duration", time.Since(batchStart)).Msg("batch completed")
			}
			batchDone = nil

			for _, resp := range pendingStops {
				resp <- true
			}
			if len(pendingStops) > 0 {
				s.log.Info().Msg("scheduler stopped after in-flight batch")
			}
			pendingStops = nil
		}
	}
}

// runBatch time-bounds one ProcessBatch call and reports its result on done.
func (s *schedulerService) runBatch(done chan<- error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.batchTimeout)
	defer cancel()

	done <- s.processor.ProcessBatch(ctx)
}
