// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtos

// Queue is the combined producer-consumer interface for a bounded FIFO of
// fixed-size byte items.
//
// [*BoundedQueue] is the implementation. Code that only moves items should
// accept Queue (or Producer/Consumer) so tests can substitute a fake.
//
// Example:
//
//	q, err := sys.CreateQueue(8, 16)
//	if err != nil {
//	    return err
//	}
//
//	// Send (blocks while full)
//	if err := q.Send(item, rtos.WaitForever); err != nil {
//	    return err
//	}
//
//	// Receive (try once)
//	item, err := q.Receive(rtos.TryOnce)
//	if rtos.IsWouldBlock(err) {
//	    // empty
//	}
type Queue interface {
	Producer
	Consumer
	Cap() int
	Len() int
	ItemSize() int
}

// Producer is the interface for sending items.
type Producer interface {
	// Send copies item into the queue.
	// With WaitForever it blocks while the queue is full.
	// With TryOnce (or on a NonBlocking queue) a full queue drops the item
	// and Send returns ErrDropped.
	Send(item []byte, wait Wait) error
}

// Consumer is the interface for receiving items.
type Consumer interface {
	// Receive removes the oldest item and returns a copy of it.
	// With WaitForever it blocks while the queue is empty.
	// With TryOnce (or on a NonBlocking queue) an empty queue returns
	// (nil, ErrWouldBlock).
	Receive(wait Wait) ([]byte, error)

	// ReceiveInto is Receive without allocation. dst must hold at least
	// ItemSize bytes.
	ReceiveInto(dst []byte, wait Wait) error
}

// Locker is a take/give mutual-exclusion primitive.
//
// [*Lock] and [*Semaphore] implement it.
type Locker interface {
	// Take acquires. Reports whether the primitive was acquired; with
	// WaitForever it always is.
	Take(wait Wait) bool
	// Give releases.
	Give() bool
}

// Signaler is the wake side of a task's event slot.
type Signaler interface {
	Signal()
}

var (
	// compile time assertions

	_ Queue    = (*BoundedQueue)(nil)
	_ Locker   = (*Lock)(nil)
	_ Locker   = (*Semaphore)(nil)
	_ Signaler = (*Task)(nil)
)
