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

//go:build tamago && arm

package board

import (
	"unsafe"
)

// Relocator implements update.Platform, images are received on the PL011
// UART.
type Relocator struct {
	UART *UART
	// End is the first address past the running program memory.
	End uint32
}

// Handler returns the relocatable receive handler.
func (r *Relocator) Handler() []byte {
	return handler
}

// ProgramEnd returns the first address past the running program memory.
func (r *Relocator) ProgramEnd() uint32 {
	return r.End
}

// Install copies the handler at dst.
func (r *Relocator) Install(dst uint32, code []byte) {
	mem := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(dst))), len(code))
	copy(mem, code)
}

// Sync writes back the installed handler and discards stale instructions.
func (r *Relocator) Sync() {
	cleanDCache()
	dsb()
	invalidateICache()
	flushPrefetch()
}

// Jump transfers control to the handler at target, it never returns.
func (r *Relocator) Jump(target uint32, load uint32, size uint32) {
	// Ready must be on the wire before interrupts and caches go away
	r.UART.Flush()
	jump(target, load, size, r.UART.Base)
}
