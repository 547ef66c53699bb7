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

//go:build tamago && arm && !debug

package main

import (
	_ "unsafe"

	"github.com/jackwickham/raspi-firmware/board"
)

// Runtime output (stack traces, runtime errors) is silenced as the PL011 is
// shared with the update protocol, a host waiting for Ready or Cancel must
// not be fed unrelated bytes.

//go:linkname printk runtime.printk
func printk(c byte) {
	// nothing to do
}

// onPanic resets the board, the console remains available after reboot.
func onPanic() {
	board.Watchdog{}.Reboot()
}
