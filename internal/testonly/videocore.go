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

// Package testonly provides fakes for mailbox and self-update tests.
package testonly

import (
	"testing"
	"unsafe"

	"github.com/jackwickham/raspi-firmware/mailbox"
)

// Handler computes the response words of a property tag, n is the response
// length in bytes reported to the ARM side.
type Handler func(req []uint32) (res []uint32, n uint32)

// Reply returns a Handler answering with fixed words, reporting a response
// length of 4 bytes per word.
func Reply(res ...uint32) Handler {
	return ReplyN(uint32(len(res)*4), res...)
}

// ReplyN returns a Handler answering with fixed words and response length.
func ReplyN(n uint32, res ...uint32) Handler {
	return func([]uint32) ([]uint32, uint32) {
		return res, n
	}
}

// Echo returns a Handler answering with the request words.
func Echo() Handler {
	return func(req []uint32) ([]uint32, uint32) {
		return req, uint32(len(req) * 4)
	}
}

// Mailbox transport events, recorded in order by VideoCore.
const (
	EventRelease = "release"
	EventWrite   = "write"
	EventRead    = "read"
	EventAcquire = "acquire"
)

// VideoCore is an in-memory mailbox peer, it implements mailbox.Registers,
// mailbox.Fence and mailbox.Bus.
//
// Property requests are served synchronously when written to the ARM to
// VideoCore FIFO, the response word is then queued on the VideoCore to ARM
// FIFO.
type VideoCore struct {
	t *testing.T

	// Handlers serves property tags, unknown tags fail the whole buffer
	// with the error response code.
	Handlers map[mailbox.Tag]Handler
	// Code, when non-zero, overrides the buffer response code.
	Code uint32
	// NoResponseBit leaves tag length fields without the response bit.
	NoResponseBit bool
	// Stray words are queued ahead of every response word.
	Stray []uint32
	// Busy is the number of remaining polls reporting the ARM to VideoCore
	// FIFO as full.
	Busy int

	// Events records the transport operations in order.
	Events []string
	// Requests records the tags of every served buffer.
	Requests [][]mailbox.Tag
	// Written records every word written by the ARM side.
	Written []uint32

	inbound []uint32
	bus     map[uint32]unsafe.Pointer
	next    uint32
}

// NewVideoCore creates a new mailbox peer serving the given tags.
func NewVideoCore(t *testing.T, handlers map[mailbox.Tag]Handler) *VideoCore {
	t.Helper()

	if handlers == nil {
		handlers = make(map[mailbox.Tag]Handler)
	}

	return &VideoCore{
		t:        t,
		Handlers: handlers,
		bus:      make(map[uint32]unsafe.Pointer),
		next:     0x1000,
	}
}

// Mailbox returns a mailbox transport instance bound to the peer.
func (vc *VideoCore) Mailbox() *mailbox.Mailbox {
	return &mailbox.Mailbox{
		Regs:  vc,
		Fence: vc,
		Bus:   vc,
	}
}

// Address assigns a fake bus address to p, preserving its alignment.
func (vc *VideoCore) Address(p unsafe.Pointer) uint32 {
	addr := vc.next | uint32(uintptr(p)&0xf)
	vc.next += 0x1000
	vc.bus[addr] = p

	return addr
}

// Release implements mailbox.Fence.
func (vc *VideoCore) Release() {
	vc.Events = append(vc.Events, EventRelease)
}

// Acquire implements mailbox.Fence.
func (vc *VideoCore) Acquire() {
	vc.Events = append(vc.Events, EventAcquire)
}

// ReadStatus implements mailbox.Registers.
func (vc *VideoCore) ReadStatus() uint32 {
	if len(vc.inbound) == 0 {
		// the ARM side would spin forever
		vc.t.Fatalf("mailbox read with no pending response")
	}

	return 0
}

// Read implements mailbox.Registers.
func (vc *VideoCore) Read() uint32 {
	vc.Events = append(vc.Events, EventRead)

	word := vc.inbound[0]
	vc.inbound = vc.inbound[1:]

	return word
}

// WriteStatus implements mailbox.Registers.
func (vc *VideoCore) WriteStatus() uint32 {
	if vc.Busy > 0 {
		vc.Busy--
		return 1 << mailbox.StatusFull
	}

	return 0
}

// Write implements mailbox.Registers.
func (vc *VideoCore) Write(word uint32) {
	vc.Events = append(vc.Events, EventWrite)
	vc.Written = append(vc.Written, word)

	p, ok := vc.bus[word&^0xf]

	if !ok {
		vc.t.Fatalf("mailbox write of unknown bus address %#x", word)
	}

	if ch := mailbox.Channel(word & 0xf); ch == mailbox.PropertyTagsARM {
		vc.serve(p)
	}

	vc.inbound = append(vc.inbound, vc.Stray...)
	vc.inbound = append(vc.inbound, word)
}

func (vc *VideoCore) serve(p unsafe.Pointer) {
	size := *(*uint32)(p)
	w := unsafe.Slice((*uint32)(p), size/4)

	var tags []mailbox.Tag
	code := mailbox.Success

	for off := 2; off+2 < len(w); {
		tag := mailbox.Tag(w[off])

		if tag == mailbox.TagEnd {
			break
		}

		tags = append(tags, tag)

		bufSize := w[off+1]
		req := make([]uint32, w[off+2]/4)
		copy(req, w[off+3:])

		h, ok := vc.Handlers[tag]

		if !ok {
			code = mailbox.Failure
			break
		}

		res, n := h(req)
		copy(w[off+3:off+3+int(bufSize/4)], res)

		if !vc.NoResponseBit {
			n |= mailbox.ResponseBit
		}

		w[off+2] = n
		off += 3 + int(bufSize/4)
	}

	if vc.Code != 0 {
		code = vc.Code
	}

	w[1] = code
	vc.Requests = append(vc.Requests, tags)
}
