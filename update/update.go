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

// Package update implements firmware self-update over a serial link.
//
// The host announces the image size as 4 little-endian bytes, the device
// answers with Ready or Cancel and, once ready, the host streams the image.
// The image is received by a small relocatable handler, copied past both the
// new image and the running program, which writes it at the load address and
// jumps to it.
package update

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/jackwickham/raspi-firmware/videocore"
)

// Wire protocol bytes.
const (
	// Trigger is sent by the host, on the console, to start an update.
	Trigger = '^'
	// Ready is sent by the device before accepting the image.
	Ready = 0x12
	// Cancel is sent by the device when the image is refused.
	Cancel = 0x18
)

// SizeLength is the length of the image size prefix.
const SizeLength = 4

var (
	// ErrTooLarge is returned when the image does not fit available memory.
	ErrTooLarge = errors.New("image too large")
	// ErrBusy is returned when an update is already in progress.
	ErrBusy = errors.New("update in progress")
	// ErrHandlerReturned is returned if control transfer to the relocated
	// handler returns.
	ErrHandlerReturned = errors.New("relocated handler returned")
	// ErrProgramEnd is returned when the running program is laid out past
	// the memory assigned to the ARM core.
	ErrProgramEnd = errors.New("program end past ARM memory")
)

// TooLargeError is returned when the announced image size exceeds available
// memory.
type TooLargeError struct {
	Size      uint32
	Available uint32
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("image size %d exceeds available memory %d", e.Size, e.Available)
}

func (e *TooLargeError) Unwrap() error {
	return ErrTooLarge
}

// Port represents the serial link to the host.
type Port interface {
	io.ByteReader
	io.ByteWriter
}

// MemoryReporter reports the memory assigned to the ARM core.
type MemoryReporter interface {
	ARMMemory() (videocore.MemoryRegion, error)
}

// Platform represents the hardware specific part of an update, it is the
// only place where memory is rewritten and control is transferred.
type Platform interface {
	// Handler returns the relocatable handler code.
	Handler() []byte
	// ProgramEnd returns the first address past the running program.
	ProgramEnd() uint32
	// Install copies the handler at dst, dst must not overlap the handler
	// nor the running program.
	Install(dst uint32, handler []byte)
	// Sync makes installed code visible to instruction fetches.
	Sync()
	// Jump transfers control to the handler at target, which receives size
	// bytes from the serial link at load and then jumps to load. Nothing
	// else may execute between Sync and Jump.
	Jump(target uint32, load uint32, size uint32)
}

// Engine represents a self-update instance.
type Engine struct {
	Port     Port
	Memory   MemoryReporter
	Platform Platform

	// LoadAddress is the address where the new image is written, memory
	// below it is reserved.
	LoadAddress uint32

	running atomic.Bool
}

// Run performs an update, the trigger byte must have already been consumed.
//
// On success Run does not return. Errors are returned after the host has
// been notified with Cancel, when it applies.
func (e *Engine) Run() (err error) {
	if !e.running.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer e.running.Store(false)

	n, err := e.readSize()

	if err != nil {
		return fmt.Errorf("could not read image size, %w", err)
	}

	p, err := e.plan(n)

	if err != nil {
		if wErr := e.Port.WriteByte(Cancel); wErr != nil {
			return errors.Join(err, wErr)
		}

		return
	}

	e.Platform.Install(p.Target, p.Handler)
	e.Platform.Sync()

	if err = e.Port.WriteByte(Ready); err != nil {
		return
	}

	e.Platform.Jump(p.Target, p.Load, p.Size)

	return ErrHandlerReturned
}

// CheckMemory verifies that the running program, and therefore any
// relocated handler, lies within the memory assigned to the ARM core.
func (e *Engine) CheckMemory() error {
	mem, err := e.Memory.ARMMemory()

	if err != nil {
		return fmt.Errorf("could not query memory, %w", err)
	}

	if end := e.Platform.ProgramEnd(); end > mem.End() {
		return fmt.Errorf("%w (%#x > %#x)", ErrProgramEnd, end, mem.End())
	}

	return nil
}

func (e *Engine) readSize() (uint32, error) {
	var buf [SizeLength]byte

	for i := range buf {
		b, err := e.Port.ReadByte()

		if err != nil {
			return 0, err
		}

		buf[i] = b
	}

	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (e *Engine) plan(n uint32) (p *Plan, err error) {
	mem, err := e.Memory.ARMMemory()

	if err != nil {
		return nil, fmt.Errorf("could not query memory, %w", err)
	}

	return NewPlan(n, mem.Size, e.LoadAddress, e.Platform.ProgramEnd(), e.Platform.Handler())
}
