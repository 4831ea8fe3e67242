// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package goid reports the identity of the calling goroutine.
//
// Identity is used only for ownership checks (a task may only wait on or
// terminate itself), never for scheduling decisions.
package goid

import "runtime"

// Current returns the current goroutine's ID.
// Returns 0 if the runtime stack header cannot be parsed.
func Current() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
