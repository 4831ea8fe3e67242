// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtos

import (
	"fmt"
	"sync"

	"code.hybscloud.com/atomix"
)

// Semaphore is a counting semaphore with a fixed maximum.
//
// Take decrements the count, blocking while it is zero. Give increments it
// and reports false, without effect, when the count is already at max.
type Semaphore struct {
	sys    *System
	handle Handle

	mu        sync.Mutex
	available sync.Cond
	count     int
	limit     int
	destroyed bool

	waiters atomix.Int64
}

// CreateSemaphore allocates a semaphore holding initial of maxCount units.
// Returns ErrInvalidArgument unless 0 < maxCount and 0 <= initial <= maxCount.
func (s *System) CreateSemaphore(maxCount, initial int) (*Semaphore, error) {
	s.assertReady("CreateSemaphore")
	if maxCount <= 0 || initial < 0 || initial > maxCount {
		return nil, fmt.Errorf("%w: semaphore max %d initial %d", ErrInvalidArgument, maxCount, initial)
	}
	h, err := s.allocHandle(kindSemaphore)
	if err != nil {
		return nil, err
	}
	sem := &Semaphore{sys: s, handle: h, count: initial, limit: maxCount}
	sem.available.L = &sem.mu
	return sem, nil
}

// CreateBinarySemaphore allocates a semaphore of one unit, initially empty.
func (s *System) CreateBinarySemaphore() (*Semaphore, error) {
	return s.CreateSemaphore(1, 0)
}

// Take acquires one unit. WaitForever blocks while none is available.
// TryOnce reports false instead, unless the system was built with
// [Builder.LegacyLockWait].
func (sem *Semaphore) Take(wait Wait) bool {
	sem.sys.assertReady("SemaphoreTake")
	block := wait == WaitForever || sem.sys.opts.legacyLockWait

	sem.mu.Lock()
	for !sem.destroyed && sem.count == 0 {
		if !block {
			sem.mu.Unlock()
			return false
		}
		sem.waiters.Add(1)
		sem.available.Wait()
		sem.waiters.Add(-1)
	}
	if sem.destroyed {
		sem.mu.Unlock()
		sem.sys.fatal(FatalOperationFailure, "SemaphoreTake", "semaphore destroyed")
	}
	sem.count--
	sem.mu.Unlock()
	return true
}

// Give releases one unit. Reports false if the count is already at max or
// sem is nil.
func (sem *Semaphore) Give() bool {
	if sem == nil {
		return false
	}
	sem.sys.assertReady("SemaphoreGive")

	sem.mu.Lock()
	if sem.destroyed {
		sem.mu.Unlock()
		sem.sys.fatal(FatalOperationFailure, "SemaphoreGive", "semaphore destroyed")
	}
	if sem.count == sem.limit {
		sem.mu.Unlock()
		return false
	}
	sem.count++
	sem.mu.Unlock()

	sem.available.Signal()
	return true
}

// Count returns the number of available units.
func (sem *Semaphore) Count() int {
	sem.mu.Lock()
	defer sem.mu.Unlock()
	return sem.count
}

// Max returns the maximum count.
func (sem *Semaphore) Max() int {
	return sem.limit
}

// Waiters returns the number of goroutines blocked in Take.
func (sem *Semaphore) Waiters() int {
	return int(sem.waiters.Load())
}

// Handle returns the semaphore's handle. It is zero after Destroy.
func (sem *Semaphore) Handle() Handle {
	sem.mu.Lock()
	defer sem.mu.Unlock()
	if sem.destroyed {
		return 0
	}
	return sem.handle
}

// Destroy releases the semaphore's handle. Goroutines blocked in Take are
// woken and halt the process, as does any later use. Destroying twice is a
// no-op.
func (sem *Semaphore) Destroy() {
	sem.sys.assertReady("DestroySemaphore")
	sem.mu.Lock()
	if sem.destroyed {
		sem.mu.Unlock()
		return
	}
	sem.destroyed = true
	sem.mu.Unlock()

	sem.available.Broadcast()
	sem.sys.releaseHandle(sem.handle, kindSemaphore)
}
