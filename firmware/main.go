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

package main

import (
	"log"
	"runtime"

	"github.com/coreos/go-semver/semver"

	_ "github.com/usbarmory/tamago/board/raspberrypi/pizero"

	"github.com/jackwickham/raspi-firmware/board"
	"github.com/jackwickham/raspi-firmware/console"
	"github.com/jackwickham/raspi-firmware/update"
	"github.com/jackwickham/raspi-firmware/videocore"
)

// initialized at compile time (see Makefile)
var (
	Build    string
	Revision string
	Version  string
)

const baudrate = 115200

var (
	Serial = &board.UART{
		Base:     board.UART0,
		Baudrate: baudrate,
	}

	VideoCore = videocore.NewClient(board.NewMailbox())
)

// frame buffer allocated by the display command
var display = videocore.Geometry{
	Width:         640,
	Height:        480,
	VirtualWidth:  640,
	VirtualHeight: 480,
	Depth:         32,
	PixelOrder:    videocore.RGB,
}

var Console *console.Console

func init() {
	log.SetFlags(0)

	if err := Serial.Init(VideoCore); err != nil {
		// the console is not available, only the runtime can report
		panic(err)
	}

	Console = console.New(Serial)
	log.SetOutput(Console)

	log.Printf("%s/%s (%s) • raspi-firmware • %s %s",
		runtime.GOOS, runtime.GOARCH, runtime.Version(),
		Revision, Build)
}

func banner() {
	if mac, err := VideoCore.MACAddress(); err != nil {
		log.Printf("FW could not read MAC address, %v", err)
	} else {
		log.Printf("FW MAC address %s", mac)
	}

	if serial, err := VideoCore.SerialNumber(); err != nil {
		log.Printf("FW could not read serial number, %v", err)
	} else {
		log.Printf("FW serial number %016x", serial)
	}

	if mem, err := VideoCore.ARMMemory(); err != nil {
		log.Printf("FW could not read memory range, %v", err)
	} else {
		log.Printf("FW memory size %#x base %#x", mem.Size, mem.Base)
	}
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("FW panic, %v", r)
			onPanic()
		}
	}()

	banner()

	version, err := semver.NewVersion(Version)

	if err != nil {
		log.Printf("FW invalid version %q, %v", Version, err)
	}

	engine := &update.Engine{
		Port:   Serial,
		Memory: VideoCore,
		Platform: &board.Relocator{
			UART: Serial,
			End:  ramStart + ramSize,
		},
		LoadAddress: loadAddress,
	}

	if err = engine.CheckMemory(); err != nil {
		log.Printf("FW warning, self-update handler may be placed outside ARM memory, %v", err)
	}

	sh := &console.Shell{
		Console:  Console,
		Input:    Serial,
		Client:   VideoCore,
		Updater:  engine,
		Power:    board.Watchdog{},
		Version:  version,
		Geometry: display,
	}

	if err = sh.Run(); err != nil {
		log.Fatalf("FW console error, %v", err)
	}

	// halt and reboot are not expected to return
	for {
	}
}
