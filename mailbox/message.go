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

package mailbox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"unsafe"
)

const (
	headerWords = 5

	// PayloadWords is the number of value words of a single tag message.
	PayloadWords = 12
	// MessageWords is the total number of words of a single tag message,
	// including header and end tag.
	MessageWords = headerWords + PayloadWords + 1

	// PayloadSize is the value buffer capacity, in bytes.
	PayloadSize = PayloadWords * 4
	// MessageSize is the total buffer size, in bytes.
	MessageSize = MessageWords * 4

	// buffers are carved out of a padded array to honour 16-byte alignment
	alignWords = 4
)

// p3, Buffer contents, Mailbox property interface
const (
	sizeOffset = iota
	codeOffset
	tagOffset
	bufferSizeOffset
	lengthOffset
	payloadOffset
)

var (
	// ErrUnknownResponse is returned when the VideoCore response does not
	// follow the property protocol.
	ErrUnknownResponse = errors.New("unrecognized property response")
	// ErrRejected is returned when the VideoCore reports an error parsing
	// the request buffer.
	ErrRejected = errors.New("property request rejected")
	// ErrOverflow is returned when a request or expected response does not
	// fit the value buffer, no hardware access is performed.
	ErrOverflow = errors.New("property value buffer overflow")
)

// SizeError is returned when the response length does not match the length
// expected for a tag.
type SizeError struct {
	Tag      Tag
	Expected uint32
	// Actual holds the length reported by the VideoCore.
	Actual uint32
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("tag %#x response length %d, expected %d", uint32(e.Tag), e.Actual, e.Expected)
}

// Message represents a single tag property buffer.
//
// A message must be used for a single round trip: the VideoCore references
// its buffer by bus address until the response word is observed.
type Message struct {
	raw [MessageWords + alignWords - 1]uint32
	w   []uint32
}

// NewMessage returns an empty request, the message is heap allocated as its
// buffer must not move while referenced by the VideoCore.
func NewMessage() *Message {
	m := &Message{}
	m.w = aligned(m.raw[:], MessageWords)

	m.w[sizeOffset] = MessageSize
	m.w[codeOffset] = Request
	m.w[bufferSizeOffset] = PayloadSize

	return m
}

// aligned returns the first 16-byte aligned window of n words within buf.
func aligned(buf []uint32, n int) []uint32 {
	addr := uintptr(unsafe.Pointer(&buf[0]))
	off := int((16-addr%16)%16) / 4

	return buf[off : off+n]
}

// SetTag sets the message tag identifier.
func (m *Message) SetTag(tag Tag) {
	m.w[tagOffset] = uint32(tag)
}

// SetQuery sets the request value words and length.
func (m *Message) SetQuery(query []uint32) error {
	if len(query) > PayloadWords {
		return ErrOverflow
	}

	copy(m.w[payloadOffset:payloadOffset+PayloadWords], query)
	m.w[lengthOffset] = uint32(len(query) * 4)

	return nil
}

// Send performs the tag request over the property channel and validates that
// the response carries exactly the expected number of bytes.
func (m *Message) Send(mb *Mailbox, tag Tag, query []uint32, expected uint32) (err error) {
	if expected > PayloadSize {
		return ErrOverflow
	}

	if err = m.SetQuery(query); err != nil {
		return
	}

	m.SetTag(tag)

	addr := mb.address(unsafe.Pointer(&m.w[0]))
	mb.Call(addr, PropertyTagsARM)

	if err = checkCode(m.w[codeOffset]); err != nil {
		return
	}

	length := m.w[lengthOffset]

	if length&ResponseBit == 0 {
		return ErrUnknownResponse
	}

	if n := length &^ ResponseBit; n != expected {
		return &SizeError{
			Tag:      tag,
			Expected: expected,
			Actual:   n,
		}
	}

	return
}

func checkCode(code uint32) error {
	switch code {
	case Success:
		return nil
	case Failure:
		return ErrRejected
	default:
		return ErrUnknownResponse
	}
}

// Response returns the response value words, sized by the response length.
func (m *Message) Response() []uint32 {
	n := m.w[lengthOffset] &^ ResponseBit

	if n > PayloadSize {
		n = PayloadSize
	}

	return m.w[payloadOffset : payloadOffset+(n+3)/4]
}

// Bytes converts the message buffer to byte array format.
func (m *Message) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, m.w)
	return buf.Bytes()
}
