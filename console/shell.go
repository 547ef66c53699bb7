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

package console

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"

	"github.com/coreos/go-semver/semver"

	"github.com/jackwickham/raspi-firmware/update"
	"github.com/jackwickham/raspi-firmware/videocore"
)

const (
	maxLineLength = 64

	backspace = 0x08
	bell      = 0x07
	del       = 0x7f
)

// errExit stops the shell loop.
var errExit = errors.New("exit")

// Client represents the firmware queries available from the shell.
type Client interface {
	FirmwareRevision() (uint32, error)
	BoardModel() (uint32, error)
	BoardRevision() (uint32, error)
	MACAddress() (net.HardwareAddr, error)
	SerialNumber() (uint64, error)
	ARMMemory() (videocore.MemoryRegion, error)
	VCMemory() (videocore.MemoryRegion, error)
	PowerState(videocore.Device) (videocore.PowerState, error)
	PowerOffAll() error
	ClockRate(videocore.Clock) (uint32, error)
	MaxClockRate(videocore.Clock) (uint32, error)
	AllocateFrameBuffer(videocore.Geometry) (*videocore.FrameBuffer, error)
}

// Updater performs a firmware self-update, it does not return on success.
type Updater interface {
	Run() error
}

// Power represents the board reset controller, on hardware its methods do
// not return.
type Power interface {
	Reboot()
	Halt()
}

type cmd struct {
	name string
	help string
	fn   func(sh *Shell) error
}

var cmds []*cmd

func init() {
	cmds = []*cmd{
		{"help", "this help", (*Shell).help},
		{"info", "firmware and board information", (*Shell).info},
		{"mac", "MAC address", (*Shell).mac},
		{"serial", "board serial number", (*Shell).serial},
		{"memory", "ARM and VideoCore memory split", (*Shell).memory},
		{"clocks", "clock rates", (*Shell).clocks},
		{"power", "power domain states", (*Shell).power},
		{"display", "allocate the frame buffer", (*Shell).display},
		{"reboot", "reset the board", (*Shell).reboot},
		{"halt", "power off devices and halt the board", (*Shell).halt},
	}
}

// Shell represents the interactive serial console.
//
// Any character is echoed back, complete lines are dispatched as commands
// while the update Trigger starts a self-update right away. Command and
// update errors are logged and never terminate the shell.
type Shell struct {
	Console *Console
	Input   io.ByteReader

	Client  Client
	Updater Updater
	Power   Power

	// Version is the running firmware version.
	Version *semver.Version
	// Geometry is the frame buffer configuration allocated by the display
	// command.
	Geometry videocore.Geometry

	line [maxLineLength]byte
	n    int
	// previous input byte, to fold CR LF into a single line end
	last byte
}

// Run reads and handles input until a reboot or halt command, or an input
// error which is returned.
func (sh *Shell) Run() error {
	for {
		c, err := sh.Input.ReadByte()

		if err != nil {
			return err
		}

		if err = sh.handle(c); errors.Is(err, errExit) {
			return nil
		}
	}
}

func (sh *Shell) handle(c byte) (err error) {
	prev := sh.last
	sh.last = c

	switch c {
	case update.Trigger:
		if err = sh.Updater.Run(); err != nil {
			log.Printf("update failed, %v", err)
		}
	case '\r', '\n':
		if c == '\n' && prev == '\r' {
			return
		}

		fmt.Fprint(sh.Console, "\n")

		line := string(sh.line[:sh.n])
		sh.n = 0

		return sh.exec(line)
	case backspace, del:
		if sh.n > 0 {
			sh.n--
			fmt.Fprint(sh.Console, "\b \b")
		}
	default:
		if sh.n == maxLineLength {
			return sh.Console.WriteByte(bell)
		}

		sh.line[sh.n] = c
		sh.n++

		return sh.Console.WriteByte(c)
	}

	return
}

func (sh *Shell) exec(line string) error {
	args := strings.Fields(line)

	if len(args) == 0 {
		return nil
	}

	for _, c := range cmds {
		if c.name != args[0] {
			continue
		}

		err := c.fn(sh)

		if err != nil && !errors.Is(err, errExit) {
			log.Printf("%s failed, %v", c.name, err)
		}

		return err
	}

	fmt.Fprintf(sh.Console, "unknown command %q, type help\n", args[0])

	return nil
}

func (sh *Shell) help() error {
	var b strings.Builder

	for _, c := range cmds {
		fmt.Fprintf(&b, "%-8s %s\n", c.name, c.help)
	}

	fmt.Fprintf(&b, "%-8c %s\n", update.Trigger, "firmware update (piload)")
	fmt.Fprint(sh.Console, b.String())

	return nil
}

func (sh *Shell) info() (err error) {
	var b strings.Builder

	version := "unknown"

	if sh.Version != nil {
		version = "v" + sh.Version.String()
	}

	fmt.Fprintf(&b, "firmware  %s\n", version)

	model, err := sh.Client.BoardModel()
	if err != nil {
		return
	}

	rev, err := sh.Client.BoardRevision()
	if err != nil {
		return
	}

	fw, err := sh.Client.FirmwareRevision()
	if err != nil {
		return
	}

	fmt.Fprintf(&b, "board     model %#x revision %#x\n", model, rev)
	fmt.Fprintf(&b, "videocore %#x\n", fw)
	fmt.Fprint(sh.Console, b.String())

	return
}

func (sh *Shell) mac() error {
	mac, err := sh.Client.MACAddress()

	if err != nil {
		return err
	}

	fmt.Fprintf(sh.Console, "%s\n", mac)

	return nil
}

func (sh *Shell) serial() error {
	serial, err := sh.Client.SerialNumber()

	if err != nil {
		return err
	}

	fmt.Fprintf(sh.Console, "%016x\n", serial)

	return nil
}

func (sh *Shell) memory() (err error) {
	arm, err := sh.Client.ARMMemory()
	if err != nil {
		return
	}

	vc, err := sh.Client.VCMemory()
	if err != nil {
		return
	}

	var b strings.Builder

	fmt.Fprintf(&b, "ARM       0x%08x-0x%08x (%d MiB)\n", arm.Base, arm.End(), arm.Size>>20)
	fmt.Fprintf(&b, "VideoCore 0x%08x-0x%08x (%d MiB)\n", vc.Base, vc.End(), vc.Size>>20)
	fmt.Fprint(sh.Console, b.String())

	return
}

func (sh *Shell) clocks() error {
	var b strings.Builder

	for clk := range videocore.Clocks() {
		rate, err := sh.Client.ClockRate(clk)
		if err != nil {
			return fmt.Errorf("%s, %w", clk, err)
		}

		maxRate, err := sh.Client.MaxClockRate(clk)
		if err != nil {
			return fmt.Errorf("%s, %w", clk, err)
		}

		fmt.Fprintf(&b, "%-6s %10d Hz (max %d Hz)\n", clk, rate, maxRate)
	}

	fmt.Fprint(sh.Console, b.String())

	return nil
}

func (sh *Shell) power() error {
	var b strings.Builder

	for d := range videocore.Devices() {
		s, err := sh.Client.PowerState(d)
		if err != nil {
			return fmt.Errorf("%s, %w", d, err)
		}

		state := "off"

		switch {
		case !s.Exists:
			state = "missing"
		case s.On:
			state = "on"
		}

		fmt.Fprintf(&b, "%-8s %s\n", d, state)
	}

	fmt.Fprint(sh.Console, b.String())

	return nil
}

func (sh *Shell) display() error {
	fb, err := sh.Client.AllocateFrameBuffer(sh.Geometry)

	if err != nil {
		return err
	}

	fmt.Fprintf(sh.Console, "%dx%d %dbpp at 0x%08x (%d bytes, pitch %d)\n",
		fb.Width, fb.Height, fb.Depth, fb.Address, fb.Size, fb.Pitch)

	return nil
}

func (sh *Shell) reboot() error {
	log.Printf("rebooting")
	sh.Power.Reboot()

	return errExit
}

func (sh *Shell) halt() error {
	log.Printf("halting")

	if err := sh.Client.PowerOffAll(); err != nil {
		return err
	}

	sh.Power.Halt()

	return errExit
}
