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

// Package console implements the serial console of the device: an exclusive
// line writer, suitable as log output, and an interactive shell.
package console

import (
	"io"
)

// Console represents an exclusive writer over a serial link, each Write is
// emitted as a whole and never interleaved with a competing Write.
type Console struct {
	lock Lock
	out  io.ByteWriter
}

// New returns a console writing to the serial link.
func New(out io.ByteWriter) *Console {
	return &Console{
		out: out,
	}
}

// Write emits p, translating line feeds to CR LF.
func (c *Console) Write(p []byte) (n int, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for _, b := range p {
		if b == '\n' {
			if err = c.out.WriteByte('\r'); err != nil {
				return
			}
		}

		if err = c.out.WriteByte(b); err != nil {
			return
		}

		n++
	}

	return
}

// WriteByte emits a single byte, without translation.
func (c *Console) WriteByte(b byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.out.WriteByte(b)
}
