// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package freelist

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent stress, which the detector cannot
// reason about across atomix slot orderings.
const RaceEnabled = true
