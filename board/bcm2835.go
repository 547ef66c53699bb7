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

// Package board implements register bindings for the BCM2835 SoC (Raspberry
// Pi Zero and 1): VideoCore mailbox, PL011 UART, watchdog, caches and the
// relocatable self-update handler.
//
// This package is only meant to be used with `GOOS=tamago GOARCH=arm` as
// supported by the TamaGo framework for bare metal Go on ARM SoCs, see
// https://github.com/usbarmory/tamago.
package board

import (
	"sync/atomic"
	"unsafe"
)

// PeripheralBase is the ARM physical address of the BCM2835 peripherals.
const PeripheralBase = 0x20000000

// Peripheral register blocks.
const (
	PM      = PeripheralBase + 0x100000
	Mailbox = PeripheralBase + 0x00b880
	GPIO    = PeripheralBase + 0x200000
	UART0   = PeripheralBase + 0x201000
)

func read(addr uint32) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(uintptr(addr))))
}

func write(addr uint32, val uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(uintptr(addr))), val)
}

// defined in barrier_arm.s
func dsb()
func dmb()
func cleanDCache()
func cleanInvalidateDCache()
func invalidateICache()
func flushPrefetch()
func jump(target uint32, load uint32, size uint32, uart uint32)
