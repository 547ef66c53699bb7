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
	"fmt"

	"github.com/usbarmory/tamago/bits"

	"github.com/jackwickham/raspi-firmware/videocore"
)

// PL011 registers
const (
	UART_DR   = 0x00
	UART_FR   = 0x18
	FR_BUSY   = 3
	FR_RXFE   = 4
	FR_TXFF   = 5
	UART_IBRD = 0x24
	UART_FBRD = 0x28

	UART_LCRH  = 0x2c
	LCRH_FEN   = 4
	LCRH_WLEN  = 5
	LCRH_WLEN8 = 0b11

	UART_CR = 0x30
	CR_EN   = 0
	CR_TXE  = 8
	CR_RXE  = 9

	UART_IMSC = 0x38
	UART_ICR  = 0x44
)

// GPIO registers
const (
	GPFSEL0   = 0x00
	GPFSEL1   = 0x04
	GPFSEL5   = 0x14
	GPLEV0    = 0x34
	GPPUD     = 0x94
	GPPUDCLK0 = 0x98
	GPPUDCLK1 = 0x9c

	GPIO_ALT0 = 0b100
)

const (
	// UART reference clock requested to the VideoCore
	uartClock = 4000000
	// GPIO pull-up/down control setup and hold time, in cycles
	gpioSetup = 150
)

// ClockSetter represents the VideoCore clock manager.
type ClockSetter interface {
	SetClockRate(clk videocore.Clock, rate uint32, skipTurbo bool) (uint32, error)
}

// UART represents a PL011 serial port instance.
type UART struct {
	// Base register
	Base uint32
	// Baud rate
	Baudrate uint32
}

// Init sets the UART reference clock, routes the UART to GPIO 14 (TX) and 15
// (RX) and enables it at the configured baud rate, 8N1 with FIFOs.
func (hw *UART) Init(clk ClockSetter) error {
	write(hw.Base+UART_CR, 0)

	rate, err := clk.SetClockRate(videocore.UART, uartClock, false)

	if err != nil {
		return fmt.Errorf("could not set UART clock, %w", err)
	}

	if rate == 0 {
		return fmt.Errorf("invalid UART clock")
	}

	fsel := read(GPIO + GPFSEL1)
	bits.SetN(&fsel, 12, 0b111, GPIO_ALT0)
	bits.SetN(&fsel, 15, 0b111, GPIO_ALT0)
	write(GPIO+GPFSEL1, fsel)

	// disable pull-up/down on GPIO 14 and 15
	write(GPIO+GPPUD, 0)
	delay(gpioSetup)
	write(GPIO+GPPUDCLK0, 1<<14|1<<15)
	delay(gpioSetup)
	write(GPIO+GPPUDCLK0, 0)

	write(hw.Base+UART_ICR, 0x7ff)

	// divisor in 1/64th units: rate / (16 * baud) * 64
	div := (rate*4 + hw.Baudrate/2) / hw.Baudrate
	write(hw.Base+UART_IBRD, div>>6)
	write(hw.Base+UART_FBRD, div&0x3f)

	var lcrh uint32
	bits.Set(&lcrh, LCRH_FEN)
	bits.SetN(&lcrh, LCRH_WLEN, 0b11, LCRH_WLEN8)
	write(hw.Base+UART_LCRH, lcrh)

	write(hw.Base+UART_IMSC, 0)

	var cr uint32
	bits.Set(&cr, CR_EN)
	bits.Set(&cr, CR_TXE)
	bits.Set(&cr, CR_RXE)
	write(hw.Base+UART_CR, cr)

	return nil
}

func delay(cycles int) {
	for i := 0; i < cycles; i++ {
		read(GPIO + GPLEV0)
	}
}

// ReadByte waits for a received byte.
func (hw *UART) ReadByte() (byte, error) {
	for {
		fr := read(hw.Base + UART_FR)

		if bits.Get(&fr, FR_RXFE, 1) == 0 {
			break
		}
	}

	return byte(read(hw.Base + UART_DR)), nil
}

// WriteByte waits for room in the transmit FIFO and queues a byte.
func (hw *UART) WriteByte(c byte) error {
	for {
		fr := read(hw.Base + UART_FR)

		if bits.Get(&fr, FR_TXFF, 1) == 0 {
			break
		}
	}

	write(hw.Base+UART_DR, uint32(c))

	return nil
}

// Flush waits for all queued bytes to be transmitted.
func (hw *UART) Flush() {
	for {
		fr := read(hw.Base + UART_FR)

		if bits.Get(&fr, FR_BUSY, 1) == 0 {
			return
		}
	}
}
