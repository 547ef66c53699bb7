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

package testonly

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/jackwickham/raspi-firmware/videocore"
)

// Trace records operations of the serial and platform fakes, in order.
type Trace struct {
	Events []string
}

func (t *Trace) add(format string, args ...any) {
	if t != nil {
		t.Events = append(t.Events, fmt.Sprintf(format, args...))
	}
}

// Serial is an in-memory serial link.
type Serial struct {
	in  *bytes.Reader
	Out bytes.Buffer

	Trace *Trace
}

// NewSerial creates a serial link receiving the given bytes.
func NewSerial(t *testing.T, in []byte) *Serial {
	t.Helper()
	return &Serial{in: bytes.NewReader(in)}
}

// ReadByte returns io.EOF once all input bytes are consumed.
func (s *Serial) ReadByte() (byte, error) {
	return s.in.ReadByte()
}

// WriteByte records an output byte.
func (s *Serial) WriteByte(c byte) error {
	s.Trace.add("send %#02x", c)
	return s.Out.WriteByte(c)
}

// Write records output bytes.
func (s *Serial) Write(p []byte) (int, error) {
	return s.Out.Write(p)
}

// Remaining returns the number of input bytes not yet consumed.
func (s *Serial) Remaining() int {
	return s.in.Len()
}

var _ io.ByteReader = &Serial{}

// Memory reports a fixed ARM memory region, or an error.
type Memory struct {
	Region videocore.MemoryRegion
	Err    error
}

// ARMMemory implements update.MemoryReporter.
func (m *Memory) ARMMemory() (videocore.MemoryRegion, error) {
	return m.Region, m.Err
}

// Jump records a control transfer.
type Jump struct {
	Target uint32
	Load   uint32
	Size   uint32
}

// Platform is an in-memory update platform, installing the handler in a RAM
// probe and recording control transfers.
type Platform struct {
	RAM  []byte
	Code []byte
	End  uint32

	Jumps []Jump

	Trace *Trace
}

// NewPlatform creates a platform with size bytes of RAM, all set to a
// poison pattern to detect writes.
func NewPlatform(t *testing.T, size int, code []byte, end uint32) *Platform {
	t.Helper()
	return &Platform{
		RAM:  bytes.Repeat([]byte{Poison}, size),
		Code: code,
		End:  end,
	}
}

// Poison is the initial value of every Platform RAM byte.
const Poison = 0xa5

// Handler implements update.Platform.
func (p *Platform) Handler() []byte {
	return p.Code
}

// ProgramEnd implements update.Platform.
func (p *Platform) ProgramEnd() uint32 {
	return p.End
}

// Install implements update.Platform.
func (p *Platform) Install(dst uint32, handler []byte) {
	p.Trace.add("install %#x", dst)
	copy(p.RAM[dst:], handler)
}

// Sync implements update.Platform.
func (p *Platform) Sync() {
	p.Trace.add("sync")
}

// Jump implements update.Platform, unlike hardware it returns.
func (p *Platform) Jump(target uint32, load uint32, size uint32) {
	p.Trace.add("jump %#x", target)
	p.Jumps = append(p.Jumps, Jump{Target: target, Load: load, Size: size})
}

// Untouched reports whether the RAM probe was never written.
func (p *Platform) Untouched() bool {
	for _, b := range p.RAM {
		if b != Poison {
			return false
		}
	}

	return true
}
