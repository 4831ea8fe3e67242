// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtos

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates a try-once operation could not proceed.
//
// For Receive: the queue is empty (no data available)
// For Send: the queue is full; see [ErrDropped]
//
// ErrWouldBlock is a control flow signal, not a failure.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrDropped is returned by a non-blocking Send on a full queue.
// The item was discarded. It wraps [ErrWouldBlock], so [IsWouldBlock]
// reports true.
//
// Example:
//
//	err := q.Send(item, rtos.TryOnce)
//	if errors.Is(err, rtos.ErrDropped) {
//	    dropped++ // back-pressure, not a fault
//	}
var ErrDropped = fmt.Errorf("rtos: queue full, item dropped: %w", iox.ErrWouldBlock)

// ErrAllocation is returned when a queue, lock, semaphore or task cannot be
// created: storage size overflow, storage above the system bound, or an
// exhausted handle table.
var ErrAllocation = errors.New("rtos: allocation failed")

// ErrInvalidArgument is returned for creation parameters that can never
// succeed, such as a zero capacity or a nil task entry.
var ErrInvalidArgument = errors.New("rtos: invalid argument")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil or ErrWouldBlock.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}

// IsDropped reports whether err is the non-blocking full-queue result.
func IsDropped(err error) bool {
	return errors.Is(err, ErrDropped)
}

// FatalKind classifies an unrecoverable misuse.
type FatalKind uint8

const (
	// FatalNotInitialized: an operation ran on a System not produced by Init.
	FatalNotInitialized FatalKind = iota + 1
	// FatalOperationFailure: a primitive was driven into an invalid state,
	// e.g. releasing a free lock or using a destroyed queue.
	FatalOperationFailure
)

func (k FatalKind) String() string {
	switch k {
	case FatalNotInitialized:
		return "not initialized"
	case FatalOperationFailure:
		return "operation failure"
	default:
		return "unknown"
	}
}

// FatalError describes a condition that halts the process.
// It is passed to the halt handler and is never returned to callers.
type FatalError struct {
	Kind FatalKind
	Op   string
	Msg  string
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("rtos: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("rtos: %s: %s: %s", e.Op, e.Kind, e.Msg)
}
