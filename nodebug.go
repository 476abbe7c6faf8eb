// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !mirrordebug

package mirror

// debugAssertions is off: invariant violations are logged and the
// offending operation is skipped.
const debugAssertions = false
