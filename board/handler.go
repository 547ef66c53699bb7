// Copyright 2022 The Armored Witness OS authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package board

import (
	"encoding/binary"
)

// receiveAndJump is position independent ARM code, entered with r0 = load
// address, r1 = image size and r2 = PL011 base. It receives the image at the
// load address, turns off MMU and caches and branches to it.
var receiveAndJump = [...]uint32{
	0xf10c00c0, // cpsid if
	0xe1a04000, // mov r4, r0
	// loop:
	0xe3510000, // cmp r1, #0
	0x0a000006, // beq done
	// wait:
	0xe5923018, // ldr r3, [r2, #UART_FR]
	0xe3130010, // tst r3, #FR_RXFE
	0x1afffffc, // bne wait
	0xe5923000, // ldr r3, [r2, #UART_DR]
	0xe4c03001, // strb r3, [r0], #1
	0xe2411001, // sub r1, r1, #1
	0xeafffff6, // b loop
	// done:
	0xe3a00000, // mov r0, #0
	0xee070f1a, // mcr p15, 0, r0, c7, c10, 0 (clean D-cache)
	0xee070f9a, // mcr p15, 0, r0, c7, c10, 4 (DSB)
	0xee113f10, // mrc p15, 0, r3, c1, c0, 0
	0xe3c33a01, // bic r3, r3, #0x1000 (I-cache)
	0xe3c33005, // bic r3, r3, #0x5 (D-cache, MMU)
	0xee013f10, // mcr p15, 0, r3, c1, c0, 0
	0xee070f15, // mcr p15, 0, r0, c7, c5, 0 (invalidate I-cache)
	0xee070f95, // mcr p15, 0, r0, c7, c5, 4 (flush prefetch buffer)
	0xe12fff14, // bx r4
}

var handler []byte

func init() {
	for _, op := range receiveAndJump {
		handler = binary.LittleEndian.AppendUint32(handler, op)
	}
}
