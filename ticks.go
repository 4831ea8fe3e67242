// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtos

import "time"

// Ticks counts kernel ticks. One tick is [System] tick period long
// (1ms by default).
type Ticks uint32

// MaxDelay is the "block indefinitely" tick count.
const MaxDelay Ticks = ^Ticks(0)

// DefaultTickPeriod is the tick length used when the builder does not
// override it.
const DefaultTickPeriod = time.Millisecond

// Wait is the blocking policy of a queue, lock or semaphore operation.
//
// There are only two: wait until the operation can proceed, or try once and
// return. No operation times out.
type Wait uint8

const (
	// WaitForever blocks until the operation can proceed.
	WaitForever Wait = iota
	// TryOnce makes a single attempt and returns immediately.
	TryOnce
)

func (w Wait) String() string {
	switch w {
	case WaitForever:
		return "wait-forever"
	case TryOnce:
		return "try-once"
	default:
		return "unknown"
	}
}

// WaitFor maps a tick count to a blocking policy.
//
// Zero ticks means try once. Any other count, including [MaxDelay], means
// wait forever: bounded waits are not supported and are rounded up.
func WaitFor(ticks Ticks) Wait {
	if ticks == 0 {
		return TryOnce
	}
	return WaitForever
}

// duration converts ticks to wall time. Zero ticks is one tick.
func (t Ticks) duration(period time.Duration) time.Duration {
	if t == 0 {
		t = 1
	}
	return time.Duration(t) * period
}
