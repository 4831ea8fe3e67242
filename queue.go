// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtos

import (
	"fmt"
	"io"
	"math"
	"sync"

	"code.hybscloud.com/atomix"
)

// BoundedQueue is a fixed-capacity circular buffer of fixed-size items.
//
// Storage is one contiguous slice of capacity*itemSize bytes. Items are
// copied in on Send and copied out on Receive, so no memory is shared
// between producer and consumer.
//
// Blocking uses one mutex and two conditions, one per direction. Waiters
// re-check the occupancy predicate after every wake, so a broadcast lets
// exactly the waiters that can proceed do so.
//
// FIFO order holds across all producers and consumers collectively.
type BoundedQueue struct {
	sys    *System
	handle Handle

	mu       sync.Mutex
	notFull  sync.Cond
	notEmpty sync.Cond

	buffer      []byte
	itemSize    int
	capacity    int
	count       int
	head        int // next write slot
	tail        int // next read slot
	nonBlocking bool
	destroyed   bool

	sent     atomix.Uint64
	received atomix.Uint64
	dropped  atomix.Uint64
}

// QueueStats reports lifetime counters for a queue.
type QueueStats struct {
	Sent     uint64
	Received uint64
	Dropped  uint64
}

// CreateQueue allocates a queue of capacity items, each itemSize bytes.
//
// Returns ErrInvalidArgument if capacity or itemSize is not positive, and
// ErrAllocation if the storage size overflows, exceeds the system's
// MaxQueueBytes, or the handle table is exhausted.
func (s *System) CreateQueue(capacity, itemSize int, opts ...QueueOption) (*BoundedQueue, error) {
	s.assertReady("CreateQueue")

	if capacity <= 0 {
		return nil, fmt.Errorf("%w: queue capacity %d", ErrInvalidArgument, capacity)
	}
	if itemSize <= 0 {
		return nil, fmt.Errorf("%w: queue item size %d", ErrInvalidArgument, itemSize)
	}
	if capacity > math.MaxInt/itemSize {
		return nil, fmt.Errorf("%w: queue storage %d*%d overflows", ErrAllocation, capacity, itemSize)
	}
	if size := capacity * itemSize; size > s.opts.maxQueueBytes {
		return nil, fmt.Errorf("%w: queue storage %d bytes exceeds limit %d", ErrAllocation, size, s.opts.maxQueueBytes)
	}

	var o queueOptions
	for _, opt := range opts {
		opt(&o)
	}

	h, err := s.allocHandle(kindQueue)
	if err != nil {
		return nil, err
	}

	q := &BoundedQueue{
		sys:         s,
		handle:      h,
		buffer:      make([]byte, capacity*itemSize),
		itemSize:    itemSize,
		capacity:    capacity,
		nonBlocking: o.nonBlocking,
	}
	q.notFull.L = &q.mu
	q.notEmpty.L = &q.mu
	return q, nil
}

// Send copies item into the slot at the head of the queue.
//
// Exactly ItemSize bytes are stored: a shorter item is zero-padded, a longer
// one truncated. If the queue is full, WaitForever blocks until a slot frees;
// TryOnce, or any wait on a NonBlocking queue, drops the item and returns
// ErrDropped.
func (q *BoundedQueue) Send(item []byte, wait Wait) error {
	q.sys.assertReady("Send")
	block := wait == WaitForever && !q.nonBlocking

	q.mu.Lock()
	for !q.destroyed && q.count == q.capacity {
		if !block {
			q.mu.Unlock()
			q.dropped.Add(1)
			return ErrDropped
		}
		q.notFull.Wait()
	}
	if q.destroyed {
		q.mu.Unlock()
		q.sys.fatal(FatalOperationFailure, "Send", "queue destroyed")
	}

	slot := q.buffer[q.head*q.itemSize : (q.head+1)*q.itemSize]
	n := copy(slot, item)
	clear(slot[n:])
	q.head = (q.head + 1) % q.capacity
	q.count++
	q.mu.Unlock()

	q.sent.Add(1)
	q.notEmpty.Broadcast()
	return nil
}

// Receive removes the item at the tail of the queue and returns a copy.
//
// If the queue is empty, WaitForever blocks until an item arrives; TryOnce,
// or any wait on a NonBlocking queue, returns (nil, ErrWouldBlock).
func (q *BoundedQueue) Receive(wait Wait) ([]byte, error) {
	q.sys.assertReady("Receive")
	out := make([]byte, q.itemSize)
	if err := q.receive(out, wait, "Receive"); err != nil {
		return nil, err
	}
	return out, nil
}

// ReceiveInto is Receive into a caller buffer. Returns io.ErrShortBuffer,
// without dequeuing, if dst is shorter than ItemSize. Only the first
// ItemSize bytes of dst are written.
func (q *BoundedQueue) ReceiveInto(dst []byte, wait Wait) error {
	q.sys.assertReady("ReceiveInto")
	if len(dst) < q.itemSize {
		return io.ErrShortBuffer
	}
	return q.receive(dst[:q.itemSize], wait, "ReceiveInto")
}

func (q *BoundedQueue) receive(dst []byte, wait Wait, op string) error {
	block := wait == WaitForever && !q.nonBlocking

	q.mu.Lock()
	for !q.destroyed && q.count == 0 {
		if !block {
			q.mu.Unlock()
			return ErrWouldBlock
		}
		q.notEmpty.Wait()
	}
	if q.destroyed {
		q.mu.Unlock()
		q.sys.fatal(FatalOperationFailure, op, "queue destroyed")
	}

	copy(dst, q.buffer[q.tail*q.itemSize:(q.tail+1)*q.itemSize])
	q.tail = (q.tail + 1) % q.capacity
	q.count--
	q.mu.Unlock()

	q.received.Add(1)
	q.notFull.Broadcast()
	return nil
}

// Len returns the number of items currently queued.
func (q *BoundedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the queue capacity in items.
func (q *BoundedQueue) Cap() int {
	return q.capacity
}

// ItemSize returns the fixed item size in bytes.
func (q *BoundedQueue) ItemSize() int {
	return q.itemSize
}

// NonBlocking reports whether the queue was created with [NonBlocking].
func (q *BoundedQueue) NonBlocking() bool {
	return q.nonBlocking
}

// Handle returns the queue's handle. It is zero after Destroy.
func (q *BoundedQueue) Handle() Handle {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return 0
	}
	return q.handle
}

// Stats returns the queue's lifetime counters.
func (q *BoundedQueue) Stats() QueueStats {
	return QueueStats{
		Sent:     q.sent.Load(),
		Received: q.received.Load(),
		Dropped:  q.dropped.Load(),
	}
}

// Destroy releases the queue's storage and handle.
//
// The caller must ensure no Send or Receive is in flight. A goroutine still
// blocked in one is woken and halts the process, as does any later use.
// Destroying twice is a no-op.
func (q *BoundedQueue) Destroy() {
	q.sys.assertReady("DestroyQueue")

	q.mu.Lock()
	if q.destroyed {
		q.mu.Unlock()
		return
	}
	q.destroyed = true
	q.buffer = nil
	q.count = 0
	q.mu.Unlock()

	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
	q.sys.releaseHandle(q.handle, kindQueue)
}
