// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtos

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// lockSpins bounds the adaptive spin of a blocking Take before it parks.
const lockSpins = 16

const (
	lockFree uint32 = iota
	lockHeld
)

// Lock is a binary mutual-exclusion lock with at most one holder.
//
// Any goroutine may Give a held Lock; ownership is not tracked. Giving a
// free Lock halts the process.
type Lock struct {
	sys    *System
	handle Handle

	mu        sync.Mutex
	state     atomix.Uint32 // lockFree or lockHeld
	destroyed atomix.Bool

	takes      atomix.Uint64
	contention atomix.Uint64
}

// CreateLock allocates a free Lock.
func (s *System) CreateLock() (*Lock, error) {
	s.assertReady("CreateLock")
	h, err := s.allocHandle(kindLock)
	if err != nil {
		return nil, err
	}
	return &Lock{sys: s, handle: h}, nil
}

// Take acquires the lock.
//
// WaitForever spins briefly and then parks until the lock is free. TryOnce
// makes a single attempt and reports false if the lock is held, unless the
// system was built with [Builder.LegacyLockWait], in which case it blocks
// like WaitForever.
func (l *Lock) Take(wait Wait) bool {
	l.checkLive("Take")

	if !l.mu.TryLock() {
		l.contention.Add(1)
		if wait == TryOnce && !l.sys.opts.legacyLockWait {
			return false
		}
		if !l.spinLock() {
			l.mu.Lock()
		}
	}
	l.state.StoreRelease(lockHeld)
	l.takes.Add(1)
	return true
}

func (l *Lock) spinLock() bool {
	sw := spin.Wait{}
	for range lockSpins {
		sw.Once()
		if l.mu.TryLock() {
			return true
		}
	}
	return false
}

// Give releases the lock and reports true. A nil Lock reports false.
// Giving a Lock that is not held halts the process.
func (l *Lock) Give() bool {
	if l == nil {
		return false
	}
	l.checkLive("Give")
	if !l.state.CompareAndSwapAcqRel(lockHeld, lockFree) {
		l.sys.fatal(FatalOperationFailure, "Give", "lock is not held")
	}
	l.mu.Unlock()
	return true
}

// Held reports whether the lock is currently taken.
func (l *Lock) Held() bool {
	return l.state.LoadAcquire() == lockHeld
}

// Handle returns the lock's handle. It is zero after Destroy.
func (l *Lock) Handle() Handle {
	if l.destroyed.LoadAcquire() {
		return 0
	}
	return l.handle
}

// Contention returns how many Take calls found the lock held.
func (l *Lock) Contention() uint64 {
	return l.contention.Load()
}

// Takes returns how many Take calls acquired the lock.
func (l *Lock) Takes() uint64 {
	return l.takes.Load()
}

// Destroy releases the lock's handle. Later use halts the process.
// Destroying twice is a no-op.
func (l *Lock) Destroy() {
	l.sys.assertReady("DestroyLock")
	if l.destroyed.LoadAcquire() {
		return
	}
	l.destroyed.StoreRelease(true)
	l.sys.releaseHandle(l.handle, kindLock)
}

func (l *Lock) checkLive(op string) {
	if l == nil {
		(*System)(nil).fatal(FatalOperationFailure, op, "nil lock")
	}
	l.sys.assertReady(op)
	if l.destroyed.LoadAcquire() {
		l.sys.fatal(FatalOperationFailure, op, "lock destroyed")
	}
}
