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

	"github.com/jackwickham/raspi-firmware/mailbox"
)

// Mailbox registers, the ARM to VideoCore block follows the VideoCore to ARM
// one.
const (
	MBOX_READ   = 0x00
	MBOX_PEEK   = 0x10
	MBOX_SENDER = 0x14
	MBOX_STATUS = 0x18
	MBOX_CONFIG = 0x1c
	MBOX_WRITE  = 0x20
)

// L2 cache coherent VideoCore alias of ARM physical memory.
const busAlias = 0x40000000

// MailboxRegisters implements mailbox.Registers.
type MailboxRegisters struct{}

func (MailboxRegisters) ReadStatus() uint32 {
	return read(Mailbox + MBOX_STATUS)
}

func (MailboxRegisters) Read() uint32 {
	return read(Mailbox + MBOX_READ)
}

func (MailboxRegisters) WriteStatus() uint32 {
	return read(Mailbox + MBOX_WRITE + MBOX_STATUS)
}

func (MailboxRegisters) Write(val uint32) {
	write(Mailbox+MBOX_WRITE, val)
}

// Fence implements mailbox.Fence with CP15 cache maintenance.
type Fence struct{}

// Release writes back dirty cache lines before the VideoCore is notified.
func (Fence) Release() {
	cleanDCache()
	dsb()
}

// Acquire drops cached copies of buffers written by the VideoCore.
func (Fence) Acquire() {
	cleanInvalidateDCache()
	dmb()
}

// Bus implements mailbox.Bus.
type Bus struct{}

func (Bus) Address(p unsafe.Pointer) uint32 {
	return uint32(uintptr(p)) | busAlias
}

// NewMailbox returns the VideoCore mailbox transport.
func NewMailbox() *mailbox.Mailbox {
	return &mailbox.Mailbox{
		Regs:  MailboxRegisters{},
		Fence: Fence{},
		Bus:   Bus{},
	}
}
