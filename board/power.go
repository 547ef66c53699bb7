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
	"github.com/usbarmory/tamago/bits"
)

// Power management registers
const (
	PM_RSTC = 0x1c
	PM_RSTS = 0x20
	PM_WDOG = 0x24

	PM_PASSWORD = 0x5a000000

	RSTC_WRCFG       = 4
	RSTC_WRCFG_FULL  = 0b10
	RSTS_PARTITION   = 0x555
	WDOG_TIME_SET    = 0x000fffff
	watchdogInterval = 10
)

// Watchdog implements board reset and halt through the power management
// watchdog.
type Watchdog struct{}

// Reboot resets the SoC, the VideoCore firmware then loads the boot
// partition image again.
func (Watchdog) Reboot() {
	reset(0)
}

// Halt returns all GPIO pins to unpulled inputs and resets the SoC with the
// halt partition set, the VideoCore firmware then halts until power cycle.
func (Watchdog) Halt() {
	resetGPIO()
	reset(RSTS_PARTITION)
}

func resetGPIO() {
	for fsel := uint32(GPFSEL0); fsel <= GPFSEL5; fsel += 4 {
		write(GPIO+fsel, 0)
	}

	write(GPIO+GPPUD, 0)
	delay(gpioSetup)
	write(GPIO+GPPUDCLK0, 0xffffffff)
	write(GPIO+GPPUDCLK1, 0x03ffffff)
	delay(gpioSetup)
	write(GPIO+GPPUDCLK0, 0)
	write(GPIO+GPPUDCLK1, 0)
}

func reset(partition uint32) {
	if partition != 0 {
		rsts := read(PM + PM_RSTS)
		rsts |= PM_PASSWORD | partition
		write(PM+PM_RSTS, rsts)
	}

	write(PM+PM_WDOG, PM_PASSWORD|watchdogInterval&WDOG_TIME_SET)

	rstc := read(PM + PM_RSTC)
	bits.SetN(&rstc, RSTC_WRCFG, 0b11, RSTC_WRCFG_FULL)
	write(PM+PM_RSTC, PM_PASSWORD|rstc&^0xff000000)

	for {
	}
}
