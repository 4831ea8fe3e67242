// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtos

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxHandles is the handle table size used by [Init].
	DefaultMaxHandles = 1024

	// DefaultMaxQueueBytes bounds the storage of a single queue.
	DefaultMaxQueueBytes = 64 << 20
)

// Options configures a [System].
type Options struct {
	// Resource bounds
	maxHandles    int // rounds up to next power of 2
	maxQueueBytes int

	// Timebase
	tickPeriod time.Duration

	// Behaviour
	legacyLockWait bool // TryOnce lock takes block like WaitForever

	// Ambient
	logger    zerolog.Logger
	hasLogger bool
	onHalt    func(*FatalError)
}

// Builder creates a [System] with fluent configuration.
//
// Example:
//
//	sys := rtos.New().
//	    MaxHandles(256).
//	    TickPeriod(time.Millisecond).
//	    Logger(zerolog.New(os.Stderr)).
//	    Init()
type Builder struct {
	opts Options
}

// New creates a builder with default options.
func New() *Builder {
	return &Builder{opts: Options{
		maxHandles:    DefaultMaxHandles,
		maxQueueBytes: DefaultMaxQueueBytes,
		tickPeriod:    DefaultTickPeriod,
	}}
}

// MaxHandles sets the number of queues, locks, semaphores and tasks that may
// be alive at once. Rounds up to the next power of 2.
//
// Panics if n < 2.
func (b *Builder) MaxHandles(n int) *Builder {
	if n < 2 {
		panic("rtos: max handles must be >= 2")
	}
	b.opts.maxHandles = n
	return b
}

// MaxQueueBytes bounds capacity*itemSize for a single queue.
// Creating a larger queue fails with [ErrAllocation].
//
// Panics if n < 1.
func (b *Builder) MaxQueueBytes(n int) *Builder {
	if n < 1 {
		panic("rtos: max queue bytes must be >= 1")
	}
	b.opts.maxQueueBytes = n
	return b
}

// TickPeriod sets the length of one tick.
//
// Panics if d <= 0.
func (b *Builder) TickPeriod(d time.Duration) *Builder {
	if d <= 0 {
		panic("rtos: tick period must be > 0")
	}
	b.opts.tickPeriod = d
	return b
}

// Logger sets the structured logger. The default writes warnings and above
// to stderr.
func (b *Builder) Logger(l zerolog.Logger) *Builder {
	b.opts.logger = l
	b.opts.hasLogger = true
	return b
}

// LegacyLockWait makes [Lock.Take] and [Semaphore.Take] with [TryOnce]
// block like [WaitForever], for callers that pass a zero tick count but
// expect the take to wait.
func (b *Builder) LegacyLockWait() *Builder {
	b.opts.legacyLockWait = true
	return b
}

// OnHalt installs a halt handler for this system only. It takes precedence
// over [SetHaltHandler]. The handler must not return; if it does, the
// halting goroutine blocks forever.
func (b *Builder) OnHalt(fn func(*FatalError)) *Builder {
	b.opts.onHalt = fn
	return b
}

// Init creates an initialized [System] from the builder's options.
func (b *Builder) Init() *System {
	opts := b.opts
	if !opts.hasLogger {
		opts.logger = defaultLogger().Level(zerolog.WarnLevel)
	}
	return newSystem(opts)
}

// Init creates a [System] with default options.
// It is the entry point that must precede every other operation.
func Init() *System {
	return New().Init()
}

// QueueOption configures a single queue at creation.
type QueueOption func(*queueOptions)

type queueOptions struct {
	nonBlocking bool
}

// NonBlocking flags the queue so Send and Receive never block, whatever
// [Wait] they are given.
func NonBlocking() QueueOption {
	return func(o *queueOptions) { o.nonBlocking = true }
}

// defaultLogger is used before a System exists and for zero Systems.
func defaultLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Str("component", "rtos").Logger()
}
