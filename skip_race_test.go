// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package mirror_test

import "testing"

// skipRace skips tests that hand events to another goroutine through a
// Queue. The race detector cannot see the ordering the lfq ring gets from
// its index atomics and reports the event slots as racy.
func skipRace(tb testing.TB) {
	tb.Helper()
	tb.Skip("skip: Queue handoff is ordered by lfq index atomics")
}
