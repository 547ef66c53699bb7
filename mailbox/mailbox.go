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

// Package mailbox implements the BCM2835 VideoCore mailbox transport and the
// property tag framing carried over it.
//
// The mailbox is a pair of hardware FIFOs shared between the ARM core and the
// VideoCore, each word carrying a 16-byte aligned buffer address in its upper
// 28 bits and a logical channel in its lower 4 bits.
//
// Hardware access is injected through the Registers, Fence and Bus
// interfaces, the package itself holds no global state and can be exercised
// on any GOOS. Register bindings for `GOOS=tamago GOARCH=arm` are provided by
// the board package.
//
// All waits are busy-poll loops without timeout, an unresponsive VideoCore
// hangs the caller indefinitely.
package mailbox

import (
	"unsafe"

	"github.com/usbarmory/tamago/bits"
)

// Channel identifies a logical mailbox endpoint.
type Channel uint32

// Mailbox channels, p.1, BCM2835 mailbox interface (firmware wiki).
const (
	Power Channel = iota
	Framebuffer
	VirtualUART
	VCHIQ
	LEDs
	Buttons
	TouchScreen
	_
	PropertyTagsARM
	PropertyTagsVC
)

// Mailbox status register bits.
const (
	StatusEmpty = 30
	StatusFull  = 31
)

const channelMask = 0xf

// Registers represents the FIFO registers of the ARM side of the mailbox
// peripheral.
type Registers interface {
	// ReadStatus returns the status register of the VideoCore to ARM FIFO.
	ReadStatus() uint32
	// Read pops one word from the VideoCore to ARM FIFO.
	Read() uint32
	// WriteStatus returns the status register of the ARM to VideoCore FIFO.
	WriteStatus() uint32
	// Write pushes one word to the ARM to VideoCore FIFO.
	Write(val uint32)
}

// Fence provides the memory ordering required around the mailbox handshake.
type Fence interface {
	// Release makes all prior writes to shared buffers visible to the
	// VideoCore, it is issued right before notifying the peer.
	Release()
	// Acquire discards stale or speculated reads of shared buffers, it is
	// issued right after the peer response is observed.
	Acquire()
}

// Bus translates ARM pointers to VideoCore bus addresses.
type Bus interface {
	Address(p unsafe.Pointer) uint32
}

// Mailbox represents a mailbox transport instance.
//
// A Mailbox must not be shared between concurrent callers: Receive discards
// any word which does not match the expected address and channel, a response
// destined to another caller would be lost.
type Mailbox struct {
	Regs  Registers
	Fence Fence
	Bus   Bus
}

// Send waits for room in the ARM to VideoCore FIFO and writes the word,
// tagged with the given channel, after issuing the release barrier.
func (mb *Mailbox) Send(word uint32, ch Channel) {
	for {
		status := mb.Regs.WriteStatus()

		if bits.Get(&status, StatusFull, 1) == 0 {
			break
		}
	}

	mb.Fence.Release()
	mb.Regs.Write(word&^channelMask | uint32(ch)&channelMask)
}

// Receive waits for a word on the VideoCore to ARM FIFO matching the given
// channel and upper 28 bits, words not matching are discarded.
//
// The acquire barrier is issued once the matching word is observed.
func (mb *Mailbox) Receive(ch Channel, upper uint32) uint32 {
	for {
		status := mb.Regs.ReadStatus()

		if bits.Get(&status, StatusEmpty, 1) == 1 {
			continue
		}

		word := mb.Regs.Read()

		if word&channelMask != uint32(ch)&channelMask || word&^channelMask != upper&^channelMask {
			continue
		}

		mb.Fence.Acquire()

		return word
	}
}

// Call performs a full round trip, sending the word and waiting for it to be
// echoed back on the same channel.
func (mb *Mailbox) Call(word uint32, ch Channel) uint32 {
	mb.Send(word, ch)
	return mb.Receive(ch, word)
}

// address returns the bus address of a property buffer, which must have its
// lower 4 bits cleared to be combined with a channel.
func (mb *Mailbox) address(p unsafe.Pointer) uint32 {
	addr := mb.Bus.Address(p)

	if addr&channelMask != 0 {
		panic("mailbox: misaligned property buffer")
	}

	return addr
}
