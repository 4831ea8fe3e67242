// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtos_test

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"golang.org/x/sync/errgroup"

	"code.hybscloud.com/rtos"
)

func item4(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

// =============================================================================
// BoundedQueue - Basic Operations
// =============================================================================

// TestQueueBasic fills a queue to capacity, overflows it, then drains it.
func TestQueueBasic(t *testing.T) {
	sys := newTestSystem()
	q, err := sys.CreateQueue(4, 4)
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}

	if q.Cap() != 4 {
		t.Fatalf("Cap: got %d, want 4", q.Cap())
	}
	if q.ItemSize() != 4 {
		t.Fatalf("ItemSize: got %d, want 4", q.ItemSize())
	}
	if q.Handle() == 0 {
		t.Fatalf("Handle: got 0, want non-zero")
	}

	// Send to capacity
	for i := range 4 {
		if err := q.Send(item4(uint32(i+100)), rtos.TryOnce); err != nil {
			t.Fatalf("Send(%d): %v", i, err)
		}
	}
	if q.Len() != 4 {
		t.Fatalf("Len: got %d, want 4", q.Len())
	}

	// Full queue drops
	err = q.Send(item4(999), rtos.TryOnce)
	if !errors.Is(err, rtos.ErrDropped) {
		t.Fatalf("Send on full: got %v, want ErrDropped", err)
	}
	if !rtos.IsWouldBlock(err) {
		t.Fatalf("IsWouldBlock(ErrDropped): got false, want true")
	}
	if q.Len() != 4 {
		t.Fatalf("Len after drop: got %d, want 4", q.Len())
	}

	// Receive in FIFO order
	for i := range 4 {
		b, err := q.Receive(rtos.TryOnce)
		if err != nil {
			t.Fatalf("Receive(%d): %v", i, err)
		}
		if got := binary.LittleEndian.Uint32(b); got != uint32(i+100) {
			t.Fatalf("Receive(%d): got %d, want %d", i, got, i+100)
		}
	}

	// Empty queue returns ErrWouldBlock
	if _, err := q.Receive(rtos.TryOnce); !errors.Is(err, rtos.ErrWouldBlock) {
		t.Fatalf("Receive on empty: got %v, want ErrWouldBlock", err)
	}
	if errors.Is(rtos.ErrWouldBlock, rtos.ErrDropped) {
		t.Fatalf("ErrWouldBlock must not match ErrDropped")
	}

	st := q.Stats()
	if st.Sent != 4 || st.Received != 4 || st.Dropped != 1 {
		t.Fatalf("Stats: got %+v, want {Sent:4 Received:4 Dropped:1}", st)
	}
}

// TestQueueWraparound cycles more items than capacity through the ring.
func TestQueueWraparound(t *testing.T) {
	sys := newTestSystem()
	q, err := sys.CreateQueue(3, 4)
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}

	// Two in, two out per round walks head and tail around a 3-slot ring.
	for i := range 100 {
		a, b := uint32(2*i), uint32(2*i+1)
		for _, v := range []uint32{a, b} {
			if err := q.Send(item4(v), rtos.TryOnce); err != nil {
				t.Fatalf("Send(%d): %v", v, err)
			}
		}
		for _, want := range []uint32{a, b} {
			got, err := q.Receive(rtos.TryOnce)
			if err != nil {
				t.Fatalf("Receive: %v", err)
			}
			if v := binary.LittleEndian.Uint32(got); v != want {
				t.Fatalf("Receive: got %d, want %d", v, want)
			}
		}
	}
	if q.Len() != 0 {
		t.Fatalf("Len: got %d, want 0", q.Len())
	}
}

// TestQueueItemSizing checks zero-padding of short items and truncation of
// long ones.
func TestQueueItemSizing(t *testing.T) {
	sys := newTestSystem()
	q, err := sys.CreateQueue(2, 4)
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}

	// Dirty the first slot so padding is observable after wraparound.
	if err := q.Send([]byte{0xFF, 0xFF, 0xFF, 0xFF}, rtos.TryOnce); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := q.Receive(rtos.TryOnce); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if err := q.Send([]byte{1, 2, 3, 4, 5, 6}, rtos.TryOnce); err != nil {
		t.Fatalf("Send long: %v", err)
	}
	if err := q.Send([]byte{7}, rtos.TryOnce); err != nil {
		t.Fatalf("Send short: %v", err)
	}

	b, _ := q.Receive(rtos.TryOnce)
	if string(b) != string([]byte{1, 2, 3, 4}) {
		t.Fatalf("truncated item: got %v, want [1 2 3 4]", b)
	}
	b, _ = q.Receive(rtos.TryOnce)
	if string(b) != string([]byte{7, 0, 0, 0}) {
		t.Fatalf("padded item: got %v, want [7 0 0 0]", b)
	}
}

// TestQueueReceiveInto checks the caller-buffer receive path.
func TestQueueReceiveInto(t *testing.T) {
	sys := newTestSystem()
	q, err := sys.CreateQueue(1, 4)
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}
	if err := q.Send(item4(42), rtos.TryOnce); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if err := q.ReceiveInto(make([]byte, 3), rtos.TryOnce); !errors.Is(err, io.ErrShortBuffer) {
		t.Fatalf("ReceiveInto short: got %v, want io.ErrShortBuffer", err)
	}
	if q.Len() != 1 {
		t.Fatalf("Len after short buffer: got %d, want 1", q.Len())
	}

	dst := []byte{9, 9, 9, 9, 9, 9}
	if err := q.ReceiveInto(dst, rtos.TryOnce); err != nil {
		t.Fatalf("ReceiveInto: %v", err)
	}
	if got := binary.LittleEndian.Uint32(dst); got != 42 {
		t.Fatalf("ReceiveInto: got %d, want 42", got)
	}
	if dst[4] != 9 || dst[5] != 9 {
		t.Fatalf("ReceiveInto wrote past item size: %v", dst)
	}
	if err := q.ReceiveInto(dst, rtos.TryOnce); !rtos.IsWouldBlock(err) {
		t.Fatalf("ReceiveInto on empty: got %v, want ErrWouldBlock", err)
	}
}

// TestQueueNonBlockingFlag checks that a NonBlocking queue ignores
// WaitForever.
func TestQueueNonBlockingFlag(t *testing.T) {
	sys := newTestSystem()
	q, err := sys.CreateQueue(1, 4, rtos.NonBlocking())
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}
	if !q.NonBlocking() {
		t.Fatalf("NonBlocking: got false, want true")
	}

	if _, err := q.Receive(rtos.WaitForever); !rtos.IsWouldBlock(err) {
		t.Fatalf("Receive on empty: got %v, want ErrWouldBlock", err)
	}
	if err := q.Send(item4(1), rtos.WaitForever); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := q.Send(item4(2), rtos.WaitForever); !errors.Is(err, rtos.ErrDropped) {
		t.Fatalf("Send on full: got %v, want ErrDropped", err)
	}
}

// =============================================================================
// BoundedQueue - Creation
// =============================================================================

func TestCreateQueueErrors(t *testing.T) {
	sys := newTestBuilder().MaxQueueBytes(16).Init()

	cases := []struct {
		name     string
		capacity int
		itemSize int
		want     error
	}{
		{"zero capacity", 0, 4, rtos.ErrInvalidArgument},
		{"negative capacity", -1, 4, rtos.ErrInvalidArgument},
		{"zero item size", 4, 0, rtos.ErrInvalidArgument},
		{"above limit", 4, 8, rtos.ErrAllocation},
		{"overflow", math.MaxInt, 2, rtos.ErrAllocation},
	}
	for _, tc := range cases {
		if _, err := sys.CreateQueue(tc.capacity, tc.itemSize); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}

	if _, err := sys.CreateQueue(4, 4); err != nil {
		t.Fatalf("CreateQueue at limit: %v", err)
	}
	if got := sys.Stats().Queues; got != 1 {
		t.Fatalf("Stats.Queues: got %d, want 1", got)
	}
}

// =============================================================================
// BoundedQueue - Blocking
// =============================================================================

// TestQueueBlockingReceive checks that a blocking receive on an empty queue
// returns once an item is sent.
func TestQueueBlockingReceive(t *testing.T) {
	sys := newTestSystem()
	q, err := sys.CreateQueue(1, 4)
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}

	got := make(chan uint32, 1)
	go func() {
		b, err := q.Receive(rtos.WaitForever)
		if err != nil {
			got <- 0
			return
		}
		got <- binary.LittleEndian.Uint32(b)
	}()

	select {
	case v := <-got:
		t.Fatalf("Receive returned %d before any send", v)
	case <-time.After(20 * time.Millisecond):
	}

	if err := q.Send(item4(7), rtos.WaitForever); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case v := <-got:
		if v != 7 {
			t.Fatalf("Receive: got %d, want 7", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Receive did not return after send")
	}
}

// TestQueueBlockingSend checks that a blocking send on a full queue waits
// for a receive and then enqueues.
func TestQueueBlockingSend(t *testing.T) {
	sys := newTestSystem()
	q, err := sys.CreateQueue(1, 4)
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}
	if err := q.Send(item4(1), rtos.WaitForever); err != nil {
		t.Fatalf("Send(1): %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- q.Send(item4(2), rtos.WaitForever)
	}()

	select {
	case err := <-done:
		t.Fatalf("Send on full returned early: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	b, err := q.Receive(rtos.TryOnce)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got := binary.LittleEndian.Uint32(b); got != 1 {
		t.Fatalf("Receive: got %d, want 1", got)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("blocked Send: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("blocked Send did not complete")
	}

	b, err = q.Receive(rtos.TryOnce)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got := binary.LittleEndian.Uint32(b); got != 2 {
		t.Fatalf("Receive: got %d, want 2", got)
	}
	if st := q.Stats(); st.Dropped != 0 {
		t.Fatalf("Dropped: got %d, want 0", st.Dropped)
	}
}

// TestQueueConcurrentFIFO runs producers and consumers concurrently and
// checks occupancy, completeness and per-producer order.
func TestQueueConcurrentFIFO(t *testing.T) {
	const (
		producers = 4
		consumers = 4
		perProd   = 2000
		capacity  = 8
	)
	sys := newTestSystem()
	q, err := sys.CreateQueue(capacity, 8)
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}

	var overfull atomix.Int64
	seen := make([][]uint32, consumers)

	var g errgroup.Group
	for p := range producers {
		g.Go(func() error {
			buf := make([]byte, 8)
			for i := range perProd {
				binary.LittleEndian.PutUint32(buf[0:], uint32(p))
				binary.LittleEndian.PutUint32(buf[4:], uint32(i))
				if err := q.Send(buf, rtos.WaitForever); err != nil {
					return err
				}
				if q.Len() > capacity {
					overfull.AddAcqRel(1)
				}
			}
			return nil
		})
	}
	for c := range consumers {
		g.Go(func() error {
			last := make([]int64, producers)
			for i := range last {
				last[i] = -1
			}
			buf := make([]byte, 8)
			for range producers * perProd / consumers {
				if err := q.ReceiveInto(buf, rtos.WaitForever); err != nil {
					return err
				}
				p := binary.LittleEndian.Uint32(buf[0:])
				seq := int64(binary.LittleEndian.Uint32(buf[4:]))
				if seq <= last[p] {
					return errors.New("per-producer order violated")
				}
				last[p] = seq
				seen[c] = append(seen[c], p<<16|uint32(seq))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent run: %v", err)
	}

	if n := overfull.Load(); n != 0 {
		t.Fatalf("occupancy exceeded capacity %d times", n)
	}
	all := make(map[uint32]bool, producers*perProd)
	for _, s := range seen {
		for _, v := range s {
			if all[v] {
				t.Fatalf("item %#x received twice", v)
			}
			all[v] = true
		}
	}
	if len(all) != producers*perProd {
		t.Fatalf("received %d distinct items, want %d", len(all), producers*perProd)
	}
	if q.Len() != 0 {
		t.Fatalf("Len after drain: got %d, want 0", q.Len())
	}
}

// =============================================================================
// BoundedQueue - Destroy
// =============================================================================

func TestQueueDestroy(t *testing.T) {
	sys := newTestSystem()
	q, err := sys.CreateQueue(2, 4)
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}

	q.Destroy()
	q.Destroy() // idempotent

	if q.Handle() != 0 {
		t.Fatalf("Handle after Destroy: got %d, want 0", q.Handle())
	}
	if got := sys.Stats().Queues; got != 0 {
		t.Fatalf("Stats.Queues after Destroy: got %d, want 0", got)
	}

	fe := catchHalt(func() { _ = q.Send(item4(1), rtos.TryOnce) })
	if fe == nil || fe.Kind != rtos.FatalOperationFailure {
		t.Fatalf("Send after Destroy: got %v, want operation failure halt", fe)
	}
	fe = catchHalt(func() { _, _ = q.Receive(rtos.TryOnce) })
	if fe == nil || fe.Kind != rtos.FatalOperationFailure {
		t.Fatalf("Receive after Destroy: got %v, want operation failure halt", fe)
	}
}

// TestQueueDestroyWakesWaiter checks that a receiver blocked at Destroy
// time is woken and halts.
func TestQueueDestroyWakesWaiter(t *testing.T) {
	sys := newTestSystem()
	q, err := sys.CreateQueue(1, 4)
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}

	halted := make(chan *rtos.FatalError, 1)
	go func() {
		halted <- catchHalt(func() { _, _ = q.Receive(rtos.WaitForever) })
	}()
	time.Sleep(20 * time.Millisecond)
	q.Destroy()

	select {
	case fe := <-halted:
		if fe == nil || fe.Op != "Receive" {
			t.Fatalf("blocked Receive: got %v, want halt in Receive", fe)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("blocked Receive was not woken by Destroy")
	}
}
