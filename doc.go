// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rtos provides real-time kernel primitives on top of goroutines.
//
// The package offers a small FreeRTOS-shaped surface:
//
//   - BoundedQueue: blocking circular queue of fixed-size byte items
//   - Lock: binary mutual-exclusion lock
//   - Semaphore: counting semaphore
//   - Task: goroutine with a private one-shot event slot
//
// Every primitive belongs to a [System], the explicit kernel context
// returned by [Init]. There is no global state besides the optional
// process-wide halt handler.
//
// # Quick Start
//
//	sys := rtos.Init()
//
//	q, err := sys.CreateQueue(1, 8)
//	if err != nil {
//	    return err
//	}
//
//	t, err := sys.Spawn(func(t *rtos.Task, arg any) {
//	    for {
//	        item, _ := q.Receive(rtos.WaitForever)
//	        handle(item)
//	    }
//	}, "rx", 1024, nil, rtos.PriorityIdle)
//
// Builder API configures the system:
//
//	sys := rtos.New().
//	    MaxHandles(256).
//	    TickPeriod(time.Millisecond).
//	    Logger(zerolog.New(os.Stderr)).
//	    Init()
//
// # Wait Policy
//
// Blocking operations take a [Wait]: [WaitForever] blocks until the
// operation can proceed, [TryOnce] makes one attempt. There are no bounded
// timeouts. [WaitFor] maps a FreeRTOS-style tick count onto the two:
//
//	rtos.WaitFor(0)             // TryOnce
//	rtos.WaitFor(rtos.MaxDelay) // WaitForever
//	rtos.WaitFor(10)            // WaitForever
//
// A queue created with [NonBlocking] treats every wait as TryOnce.
//
// # Queues
//
// Items are copied in and out; the queue owns its storage. Send stores
// exactly ItemSize bytes, zero-padding short items and truncating long ones:
//
//	err := q.Send(item, rtos.TryOnce)
//	if errors.Is(err, rtos.ErrDropped) {
//	    // queue full, item discarded
//	}
//
//	item, err := q.Receive(rtos.TryOnce)
//	if rtos.IsWouldBlock(err) {
//	    // queue empty
//	}
//
// Fixed-size Go values travel through [SendValue] and [ReceiveValue]:
//
//	type foo struct {
//	    Value    uint32
//	    Reserved uint32
//	}
//	err := rtos.SendValue(q, foo{0x111, 0xAAA}, rtos.WaitForever)
//	v, err := rtos.ReceiveValue[foo](q, rtos.WaitForever)
//
// # Tasks and Signals
//
// Each task has an event slot holding at most one pending signal. A signal
// sent before the task waits is kept; several signals before one wait
// coalesce:
//
//	t.Signal()
//	t.Signal()
//	// inside t: WaitSignal returns once, the slot is then empty
//
// Only the task itself may wait on its slot or end itself with Exit.
//
// # Error Handling
//
// Recoverable conditions are returned as errors. [ErrWouldBlock] comes from
// [code.hybscloud.com/iox] for ecosystem consistency, and [ErrDropped] wraps
// it:
//
//	rtos.IsWouldBlock(err)  // true if queue full/empty
//	rtos.IsSemantic(err)    // true if control flow signal
//	rtos.IsNonFailure(err)  // true if nil or ErrWouldBlock
//
// Creation failures wrap [ErrInvalidArgument] or [ErrAllocation].
//
// Misuse is fatal: using a System that did not come from Init, giving a free
// lock, using a destroyed primitive, or waiting on another task's slot. The
// condition is logged at fatal level and passed as a [*FatalError] to the
// halt handler ([Builder.OnHalt], else [SetHaltHandler], else os.Exit(1)).
// A halt never returns to the caller.
//
// # Thread Safety
//
// All operations are safe for concurrent use. FIFO order holds per queue
// across all producers and consumers. Waiters use sync.Cond and re-check
// their predicate after every wake.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, [code.hybscloud.com/spin] for CPU pause instructions,
// and [github.com/rs/zerolog] for structured logging.
package rtos
