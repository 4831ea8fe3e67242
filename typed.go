// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtos

import (
	"encoding/binary"
	"fmt"
)

// SendValue encodes v little-endian and sends it on q.
//
// T must be a fixed-size value as understood by [binary.Size] (integers,
// floats, bools, arrays and structs of those, no padding), and its encoded
// size must equal q.ItemSize(); otherwise SendValue returns
// ErrInvalidArgument without touching the queue.
//
// Example:
//
//	type foo struct {
//	    Value    uint32
//	    Reserved uint32
//	}
//	q, _ := sys.CreateQueue(1, 8)
//	err := rtos.SendValue(q, foo{Value: 0x111, Reserved: 0xAAA}, rtos.WaitForever)
func SendValue[T any](q *BoundedQueue, v T, wait Wait) error {
	size := binary.Size(v)
	if size != q.ItemSize() {
		return fmt.Errorf("%w: value of %T encodes to %d bytes, queue item is %d", ErrInvalidArgument, v, size, q.ItemSize())
	}
	buf := make([]byte, 0, size)
	buf, err := binary.Append(buf, binary.LittleEndian, v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return q.Send(buf, wait)
}

// ReceiveValue receives one item from q and decodes it little-endian into
// a T. Size rules are those of [SendValue].
func ReceiveValue[T any](q *BoundedQueue, wait Wait) (T, error) {
	var v T
	size := binary.Size(v)
	if size != q.ItemSize() {
		return v, fmt.Errorf("%w: value of %T encodes to %d bytes, queue item is %d", ErrInvalidArgument, v, size, q.ItemSize())
	}
	buf := make([]byte, size)
	if err := q.ReceiveInto(buf, wait); err != nil {
		return v, err
	}
	if _, err := binary.Decode(buf, binary.LittleEndian, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return v, nil
}
