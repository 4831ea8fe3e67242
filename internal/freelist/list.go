// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package freelist provides a bounded lock-free pool of small integer
// indices, used to hand out registry slots without a global lock.
//
// The pool is a CAS-based ring of n slots. Empty slots store
// (emptyFlag | lap), filled slots store the index directly, so index zero
// is a valid value.
package freelist

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// emptyFlag marks a slot as empty. The remaining 63 bits store the lap.
const emptyFlag = 1 << 63

// ErrWouldBlock is returned by Get when the pool is exhausted and by Put
// when the pool is already full.
var ErrWouldBlock = iox.ErrWouldBlock

// List is a bounded multi-producer multi-consumer index pool.
//
// Each slot holds either an index or an empty marker tagged with the lap
// in which it was emptied. A Put for lap r claims a slot only if it is
// marked empty for lap r; a Get moves the slot to empty for lap r+1.
//
// Memory: 8 bytes per slot
type List struct {
	_      pad
	putPos atomix.Uint64
	_      pad
	getPos atomix.Uint64
	_      pad
	slots  []atomix.Uintptr
	mask   uint64
	size   uint64
	shift  uint64 // log2(size)
}

// New creates an empty pool able to hold capacity indices.
// Capacity rounds up to the next power of 2.
func New(capacity int) *List {
	if capacity < 2 {
		panic("freelist: capacity must be >= 2")
	}

	size := uint64(RoundToPow2(capacity))
	l := &List{
		slots: make([]atomix.Uintptr, size),
		mask:  size - 1,
		size:  size,
	}
	for 1<<l.shift < size {
		l.shift++
	}
	for i := range l.slots {
		l.slots[i].StoreRelaxed(emptyMark(0))
	}
	return l
}

// NewFull creates a pool pre-filled with the indices [0, Cap()).
func NewFull(capacity int) *List {
	l := New(capacity)
	for i := range l.Cap() {
		if err := l.Put(uint32(i)); err != nil {
			panic("freelist: prefill overflow")
		}
	}
	return l
}

func emptyMark(lap uint64) uintptr {
	return emptyFlag | uintptr(lap&(emptyFlag-1))
}

func (l *List) lap(pos uint64) uint64 {
	return pos >> l.shift
}

// Put returns an index to the pool.
// Returns ErrWouldBlock if the pool is full.
func (l *List) Put(idx uint32) error {
	sw := spin.Wait{}
	for {
		pos := l.putPos.LoadAcquire()
		if pos >= l.getPos.LoadAcquire()+l.size {
			return ErrWouldBlock
		}
		if pos != l.putPos.LoadAcquire() {
			continue
		}

		claimed := l.slots[pos&l.mask].CompareAndSwapAcqRel(emptyMark(l.lap(pos)), uintptr(idx))
		// Help a stalled putter along either way.
		l.putPos.CompareAndSwapAcqRel(pos, pos+1)
		if claimed {
			return nil
		}
		sw.Once()
	}
}

// Get takes an index from the pool.
// Returns (0, ErrWouldBlock) if the pool is exhausted.
func (l *List) Get() (uint32, error) {
	sw := spin.Wait{}
	for {
		pos := l.getPos.LoadAcquire()
		if pos >= l.putPos.LoadAcquire() {
			return 0, ErrWouldBlock
		}
		slot := &l.slots[pos&l.mask]
		v := slot.LoadAcquire()
		if pos != l.getPos.LoadAcquire() {
			continue
		}

		next := emptyMark(l.lap(pos) + 1)
		switch {
		case v == next:
			// Already taken by a getter that has not advanced getPos yet.
			l.getPos.CompareAndSwapAcqRel(pos, pos+1)
		case v&emptyFlag != 0:
			// Putter claimed the position but has not stored yet.
			sw.Once()
		case slot.CompareAndSwapAcqRel(v, next):
			l.getPos.CompareAndSwapAcqRel(pos, pos+1)
			return uint32(v), nil
		default:
			l.getPos.CompareAndSwapAcqRel(pos, pos+1)
			sw.Once()
		}
	}
}

// Cap returns the pool capacity.
func (l *List) Cap() int {
	return int(l.size)
}

// RoundToPow2 rounds n up to the next power of 2.
func RoundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte
