// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtos

import (
	"fmt"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/rtos/internal/freelist"
)

// Handle identifies a live queue, lock, semaphore or task within its System.
// The zero Handle is never issued. Handles are recycled after Destroy or
// task exit.
type Handle uint32

type kind uint32

const (
	kindFree kind = iota
	kindQueue
	kindLock
	kindSemaphore
	kindTask
)

func (k kind) String() string {
	switch k {
	case kindQueue:
		return "queue"
	case kindLock:
		return "lock"
	case kindSemaphore:
		return "semaphore"
	case kindTask:
		return "task"
	default:
		return "free"
	}
}

// registry hands out handles from a lock-free index pool and records what
// each live handle refers to.
type registry struct {
	free  *freelist.List
	kinds []atomix.Uint32
}

func newRegistry(maxHandles int) *registry {
	free := freelist.NewFull(maxHandles)
	return &registry{
		free:  free,
		kinds: make([]atomix.Uint32, free.Cap()),
	}
}

func (r *registry) alloc(k kind) (Handle, error) {
	idx, err := r.free.Get()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: handle table exhausted (%d max)", ErrAllocation, k, r.free.Cap())
	}
	r.kinds[idx].StoreRelease(uint32(k))
	return Handle(idx + 1), nil
}

// release returns h to the pool. Reports false if h was not a live handle
// of kind k, so a double release cannot put an index back twice.
func (r *registry) release(h Handle, k kind) bool {
	if h == 0 || int(h) > len(r.kinds) {
		return false
	}
	idx := uint32(h - 1)
	if !r.kinds[idx].CompareAndSwapAcqRel(uint32(k), uint32(kindFree)) {
		return false
	}
	return r.free.Put(idx) == nil
}

func (r *registry) kindOf(h Handle) kind {
	if h == 0 || int(h) > len(r.kinds) {
		return kindFree
	}
	return kind(r.kinds[h-1].LoadAcquire())
}

func (r *registry) count(k kind) int {
	n := 0
	for i := range r.kinds {
		if kind(r.kinds[i].LoadAcquire()) == k {
			n++
		}
	}
	return n
}

func (r *registry) capacity() int {
	return r.free.Cap()
}
