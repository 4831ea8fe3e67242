// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtos

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var haltHandler atomic.Pointer[func(*FatalError)]

// SetHaltHandler installs a process-wide halt handler, used by every System
// that has no [Builder.OnHalt] handler. Passing nil restores the default,
// which exits the process with status 1.
//
// The handler must not return. Test harnesses typically panic with the
// *FatalError and recover it.
func SetHaltHandler(fn func(*FatalError)) {
	if fn == nil {
		haltHandler.Store(nil)
		return
	}
	haltHandler.Store(&fn)
}

// fatal logs and halts. It never returns.
// Callers must not hold any primitive's mutex.
func (s *System) fatal(kind FatalKind, op, msg string) {
	err := &FatalError{Kind: kind, Op: op, Msg: msg}

	var onHalt func(*FatalError)
	var log zerolog.Logger
	if s != nil && s.ready.LoadAcquire() {
		log = s.log
		onHalt = s.opts.onHalt
	} else {
		log = defaultLogger()
	}
	log.WithLevel(zerolog.FatalLevel).
		Str("op", op).
		Str("kind", kind.String()).
		Msg(err.Error())

	if onHalt == nil {
		if p := haltHandler.Load(); p != nil {
			onHalt = *p
		}
	}
	if onHalt == nil {
		os.Exit(1)
	}
	onHalt(err)
	select {}
}
