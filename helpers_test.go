// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtos_test

import (
	"testing"
	"time"

	"code.hybscloud.com/iox"
	"github.com/rs/zerolog"

	"code.hybscloud.com/rtos"
)

// haltPanic turns a halt into a panic that catchHalt can recover.
func haltPanic(e *rtos.FatalError) {
	panic(e)
}

// newTestBuilder returns a builder with a silent logger and a panicking
// halt handler.
func newTestBuilder() *rtos.Builder {
	return rtos.New().Logger(zerolog.Nop()).OnHalt(haltPanic)
}

func newTestSystem() *rtos.System {
	return newTestBuilder().Init()
}

// catchHalt runs fn on the calling goroutine and returns the *FatalError it
// halted with, or nil if it returned normally.
func catchHalt(fn func()) (fe *rtos.FatalError) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*rtos.FatalError)
			if !ok {
				panic(r)
			}
			fe = e
		}
	}()
	fn()
	return nil
}

// waitUntil polls cond with backoff until it holds or d elapses.
func waitUntil(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	backoff := iox.Backoff{}
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		backoff.Wait()
	}
}

// waitDone waits for a task to end.
func waitDone(t *testing.T, task *rtos.Task, d time.Duration) {
	t.Helper()
	select {
	case <-task.Done():
	case <-time.After(d):
		t.Fatalf("task %q did not finish within %v", task.Name(), d)
	}
}
