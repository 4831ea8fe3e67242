// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtos

import (
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/rs/zerolog"

	"code.hybscloud.com/rtos/internal/goid"
)

// System is the initialized kernel context returned by [Init].
//
// Every queue, lock, semaphore and task belongs to exactly one System.
// Independent Systems may coexist in one process. Using a System that was
// not produced by [Init] or [Builder.Init] (for example a zero value or a nil
// pointer) halts the process.
type System struct {
	ready atomix.Bool
	opts  Options
	log   zerolog.Logger
	reg   *registry
	start time.Time

	// goroutine ID -> *Task, for Self and the free-function task calls.
	tasks sync.Map
}

// SystemStats is a point-in-time census of live handles.
type SystemStats struct {
	Queues     int
	Locks      int
	Semaphores int
	Tasks      int
	Handles    int // live handles of any kind
	MaxHandles int
}

func newSystem(opts Options) *System {
	s := &System{
		opts:  opts,
		log:   opts.logger,
		reg:   newRegistry(opts.maxHandles),
		start: time.Now(),
	}
	s.ready.StoreRelease(true)
	s.log.Debug().
		Int("max_handles", s.reg.capacity()).
		Dur("tick", opts.tickPeriod).
		Bool("legacy_lock_wait", opts.legacyLockWait).
		Msg("system initialized")
	return s
}

// assertReady halts unless s came from Init.
func (s *System) assertReady(op string) {
	if s == nil || !s.ready.LoadAcquire() {
		s.fatal(FatalNotInitialized, op, "system used before Init")
	}
}

// Logger returns the system's structured logger.
func (s *System) Logger() *zerolog.Logger {
	s.assertReady("Logger")
	return &s.log
}

// TickPeriod returns the length of one tick.
func (s *System) TickPeriod() time.Duration {
	s.assertReady("TickPeriod")
	return s.opts.tickPeriod
}

// TickCount returns the number of ticks elapsed since Init.
// The count wraps at [MaxDelay].
func (s *System) TickCount() Ticks {
	s.assertReady("TickCount")
	return Ticks(time.Since(s.start) / s.opts.tickPeriod)
}

// MsToTicks converts milliseconds to ticks, rounding up so a non-zero
// duration is never shorter than requested.
func (s *System) MsToTicks(ms uint32) Ticks {
	s.assertReady("MsToTicks")
	d := time.Duration(ms) * time.Millisecond
	p := s.opts.tickPeriod
	n := (d + p - 1) / p
	if n > time.Duration(MaxDelay) {
		return MaxDelay
	}
	return Ticks(n)
}

// Delay suspends the calling goroutine for about ticks ticks.
// Zero ticks sleeps for one tick. Timing is approximate.
func (s *System) Delay(ticks Ticks) {
	s.assertReady("Delay")
	time.Sleep(ticks.duration(s.opts.tickPeriod))
}

// Stats returns a census of live handles.
func (s *System) Stats() SystemStats {
	s.assertReady("Stats")
	st := SystemStats{
		Queues:     s.reg.count(kindQueue),
		Locks:      s.reg.count(kindLock),
		Semaphores: s.reg.count(kindSemaphore),
		Tasks:      s.reg.count(kindTask),
		MaxHandles: s.reg.capacity(),
	}
	st.Handles = st.Queues + st.Locks + st.Semaphores + st.Tasks
	return st
}

// Self returns the task whose goroutine is calling, if any.
func (s *System) Self() (*Task, bool) {
	s.assertReady("Self")
	v, ok := s.tasks.Load(goid.Current())
	if !ok {
		return nil, false
	}
	return v.(*Task), true
}

// Signal delivers a wake signal to t. See [Task.Signal].
func (s *System) Signal(t *Task) {
	s.assertReady("Signal")
	if t == nil {
		s.fatal(FatalOperationFailure, "Signal", "nil task")
	}
	t.Signal()
}

// WaitForSignal blocks the calling task until it is signalled.
// Calling it from a goroutine that is not a task halts the process.
func (s *System) WaitForSignal() {
	t, ok := s.Self()
	if !ok {
		s.fatal(FatalOperationFailure, "WaitForSignal", "caller is not a task")
	}
	t.WaitSignal()
}

// TerminateSelf ends the calling task. Called from a goroutine that is not
// a task of s, it does nothing.
func (s *System) TerminateSelf() {
	t, ok := s.Self()
	if !ok {
		s.log.Warn().Str("op", "TerminateSelf").Msg("caller is not a task, ignored")
		return
	}
	t.Exit()
}

func (s *System) allocHandle(k kind) (Handle, error) {
	h, err := s.reg.alloc(k)
	if err != nil {
		s.log.Debug().Err(err).Stringer("kind", k).Msg("handle allocation failed")
		return 0, err
	}
	s.log.Debug().Uint32("handle", uint32(h)).Stringer("kind", k).Msg("handle allocated")
	return h, nil
}

func (s *System) releaseHandle(h Handle, k kind) {
	if s.reg.release(h, k) {
		s.log.Debug().Uint32("handle", uint32(h)).Stringer("kind", k).Msg("handle released")
	}
}
