// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtos

import (
	"fmt"
	"runtime"
	"sync"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/rtos/internal/goid"
)

// TaskFunc is a task entry point. It runs on the task's own goroutine;
// returning from it ends the task.
type TaskFunc func(t *Task, arg any)

// Priority is a task priority hint. It is recorded, not enforced: tasks
// are scheduled by the Go runtime.
type Priority uint32

// PriorityIdle is the lowest priority.
const PriorityIdle Priority = 0

// TaskState is the observable lifecycle state of a task.
type TaskState uint32

const (
	// TaskRunning: the task is runnable or blocked on something other
	// than its event slot.
	TaskRunning TaskState = iota
	// TaskWaiting: the task is blocked in WaitSignal.
	TaskWaiting
	// TaskTerminated: the entry returned or the task called Exit.
	TaskTerminated
)

func (s TaskState) String() string {
	switch s {
	case TaskRunning:
		return "running"
	case TaskWaiting:
		return "waiting"
	case TaskTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Task is a goroutine with a name, hints and a private one-shot event slot.
//
// The event slot holds at most one pending signal. Signals delivered before
// the task waits are kept; several signals before one wait coalesce into a
// single wake. Only the task itself may wait on its slot.
type Task struct {
	sys       *System
	handle    Handle
	name      string
	stackHint int
	priority  Priority

	gid   atomix.Uint64
	state atomix.Uint32
	done  chan struct{}

	mu      sync.Mutex
	wake    sync.Cond
	pending bool

	signals atomix.Uint64
	wakes   atomix.Uint64
}

// Spawn starts a task running entry(t, arg) on a new goroutine.
//
// stackHint and priority are stored for inspection only. Spawn returns once
// the goroutine is running, so [System.Self] already resolves inside entry.
// Returns ErrInvalidArgument for a nil entry and ErrAllocation when the
// handle table is exhausted.
func (s *System) Spawn(entry TaskFunc, name string, stackHint int, arg any, priority Priority) (*Task, error) {
	s.assertReady("Spawn")
	if entry == nil {
		return nil, fmt.Errorf("%w: nil task entry", ErrInvalidArgument)
	}
	h, err := s.allocHandle(kindTask)
	if err != nil {
		return nil, err
	}

	t := &Task{
		sys:       s,
		handle:    h,
		name:      name,
		stackHint: stackHint,
		priority:  priority,
		done:      make(chan struct{}),
	}
	t.wake.L = &t.mu

	started := make(chan struct{})
	go t.run(entry, arg, started)
	<-started
	return t, nil
}

func (t *Task) run(entry TaskFunc, arg any, started chan<- struct{}) {
	id := goid.Current()
	t.gid.StoreRelease(id)
	t.sys.tasks.Store(id, t)

	defer func() {
		t.state.StoreRelease(uint32(TaskTerminated))
		t.sys.tasks.Delete(id)
		t.sys.releaseHandle(t.handle, kindTask)
		t.sys.log.Debug().Str("task", t.name).Uint32("handle", uint32(t.handle)).Msg("task exited")
		close(t.done)
	}()

	t.sys.log.Debug().
		Str("task", t.name).
		Uint32("handle", uint32(t.handle)).
		Int("stack_hint", t.stackHint).
		Uint32("priority", uint32(t.priority)).
		Msg("task started")
	close(started)
	entry(t, arg)
}

// WaitSignal blocks until a signal is pending, then consumes it.
// It returns immediately if a signal arrived earlier.
//
// Calling WaitSignal from any goroutine other than the task's own halts the
// process.
func (t *Task) WaitSignal() {
	t.checkLive("WaitSignal")
	if goid.Current() != t.gid.LoadAcquire() {
		t.sys.fatal(FatalOperationFailure, "WaitSignal", "not called by task "+t.name)
	}

	t.mu.Lock()
	for !t.pending {
		t.state.StoreRelease(uint32(TaskWaiting))
		t.wake.Wait()
	}
	t.pending = false
	t.state.StoreRelease(uint32(TaskRunning))
	t.mu.Unlock()

	t.wakes.Add(1)
}

// Signal sets the task's event slot and wakes it if it is waiting.
// Signalling a terminated task has no effect.
func (t *Task) Signal() {
	t.checkLive("Signal")
	t.mu.Lock()
	t.pending = true
	t.mu.Unlock()
	t.wake.Signal()
	t.signals.Add(1)
}

// Suspend is WaitSignal.
func (t *Task) Suspend() {
	t.WaitSignal()
}

// Resume is Signal.
func (t *Task) Resume() {
	t.Signal()
}

// Delay suspends the task for about ticks ticks. See [System.Delay].
func (t *Task) Delay(ticks Ticks) {
	t.checkLive("Delay")
	t.sys.Delay(ticks)
}

// Exit ends the task. Deferred calls in entry run as usual.
//
// Called from a goroutine other than the task's own, Exit does nothing: a
// task cannot terminate another task.
func (t *Task) Exit() {
	t.checkLive("Exit")
	if goid.Current() != t.gid.LoadAcquire() {
		t.sys.log.Warn().Str("op", "Exit").Str("task", t.name).Msg("caller is not the task, ignored")
		return
	}
	runtime.Goexit()
}

// Pending reports whether a signal is waiting to be consumed.
func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// StackHint returns the stack size hint given to Spawn.
func (t *Task) StackHint() int { return t.stackHint }

// Priority returns the priority hint given to Spawn.
func (t *Task) Priority() Priority { return t.priority }

// State returns the task's current state.
func (t *Task) State() TaskState { return TaskState(t.state.LoadAcquire()) }

// Handle returns the task's handle. It is zero once the task has ended.
func (t *Task) Handle() Handle {
	if t.State() == TaskTerminated {
		return 0
	}
	return t.handle
}

// Done returns a channel closed when the task has ended.
func (t *Task) Done() <-chan struct{} { return t.done }

// Signals returns how many signals were delivered, coalesced or not.
func (t *Task) Signals() uint64 { return t.signals.Load() }

// Wakes returns how many times WaitSignal consumed a signal.
func (t *Task) Wakes() uint64 { return t.wakes.Load() }

func (t *Task) checkLive(op string) {
	if t == nil {
		(*System)(nil).fatal(FatalOperationFailure, op, "nil task")
	}
	t.sys.assertReady(op)
}
