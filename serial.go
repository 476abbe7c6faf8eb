// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror

import "code.hybscloud.com/atomix"

// Serial identifies one mirror in logs.
// Each call to New assigns the next serial value.
type Serial = uint32

// mirrors is the process-wide counter of mirror serials.
var mirrors atomix.Uint32

func nextSerial() Serial {
	return mirrors.Add(1)
}
