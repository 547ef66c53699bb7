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

package videocore

import (
	"fmt"
	"iter"

	"github.com/jackwickham/raspi-firmware/mailbox"
)

// Clock identifies a VideoCore managed clock.
type Clock uint32

// Clock identifiers, Mailbox property interface.
const (
	EMMC Clock = iota + 1
	UART
	ARM
	Core
	V3D
	H264
	ISP
	SDRAM
	Pixel
	PWM
)

var clockNames = [...]string{
	EMMC:  "EMMC",
	UART:  "UART",
	ARM:   "ARM",
	Core:  "CORE",
	V3D:   "V3D",
	H264:  "H264",
	ISP:   "ISP",
	SDRAM: "SDRAM",
	Pixel: "PIXEL",
	PWM:   "PWM",
}

func (c Clock) String() string {
	if c > 0 && int(c) < len(clockNames) {
		return clockNames[c]
	}

	return fmt.Sprintf("clock %d", uint32(c))
}

// Clocks returns the VideoCore managed clocks, in encoding order.
func Clocks() iter.Seq[Clock] {
	return func(yield func(Clock) bool) {
		for c := EMMC; c <= PWM; c++ {
			if !yield(c) {
				return
			}
		}
	}
}

// ClockRate returns the current rate of a clock, in Hz.
func (c *Client) ClockRate(clk Clock) (uint32, error) {
	return c.rate(mailbox.TagGetClockRate, clk)
}

// MaxClockRate returns the maximum supported rate of a clock, in Hz.
func (c *Client) MaxClockRate(clk Clock) (uint32, error) {
	return c.rate(mailbox.TagGetMaxClockRate, clk)
}

func (c *Client) rate(tag mailbox.Tag, clk Clock) (uint32, error) {
	res, err := c.query(tag, clockRateLen, uint32(clk), 0)

	if err != nil {
		return 0, err
	}

	return res[1], nil
}

// SetClockRate sets the rate of a clock, in Hz, returning the rate actually
// applied by the firmware. The skipTurbo argument prevents the firmware from
// raising other clocks when the ARM clock is above its default.
func (c *Client) SetClockRate(clk Clock, rate uint32, skipTurbo bool) (uint32, error) {
	var skip uint32

	if skipTurbo {
		skip = 1
	}

	res, err := c.query(mailbox.TagSetClockRate, clockRateLen, uint32(clk), rate, skip)

	if err != nil {
		return 0, err
	}

	return res[1], nil
}
