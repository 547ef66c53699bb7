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

	"github.com/usbarmory/tamago/bits"

	"github.com/jackwickham/raspi-firmware/mailbox"
)

// Device identifies a power manageable device.
type Device uint32

// Power domain identifiers, Mailbox property interface.
const (
	SDCard Device = iota
	UART0
	UART1
	USBHCD
	I2C0
	I2C1
	I2C2
	SPI
	CCP2TX
)

var deviceNames = [...]string{
	SDCard: "SD card",
	UART0:  "UART0",
	UART1:  "UART1",
	USBHCD: "USB HCD",
	I2C0:   "I2C0",
	I2C1:   "I2C1",
	I2C2:   "I2C2",
	SPI:    "SPI",
	CCP2TX: "CCP2TX",
}

func (d Device) String() string {
	if int(d) < len(deviceNames) {
		return deviceNames[d]
	}

	return fmt.Sprintf("device %d", uint32(d))
}

// Devices returns the power manageable devices, in encoding order.
func Devices() iter.Seq[Device] {
	return func(yield func(Device) bool) {
		for d := SDCard; d <= CCP2TX; d++ {
			if !yield(d) {
				return
			}
		}
	}
}

// Power state flags.
const (
	PowerOn   = 0
	PowerWait = 1
	// set in responses for unknown devices
	powerMissing = 1
)

// PowerState represents the state of a power domain.
type PowerState struct {
	On     bool
	Exists bool
}

// PowerState returns the power state of a device.
func (c *Client) PowerState(d Device) (s PowerState, err error) {
	res, err := c.query(mailbox.TagGetPowerState, powerStateLen, uint32(d), 0)

	if err != nil {
		return
	}

	s.On = bits.Get(&res[1], PowerOn, 1) == 1
	s.Exists = bits.Get(&res[1], powerMissing, 1) == 0

	return
}

// SetPowerState switches a device on or off, optionally waiting for the
// transition to complete. The returned value reports whether the device is
// powered on after the request.
func (c *Client) SetPowerState(d Device, on bool, wait bool) (bool, error) {
	var flags uint32

	if on {
		bits.Set(&flags, PowerOn)
	}

	if wait {
		bits.Set(&flags, PowerWait)
	}

	res, err := c.query(mailbox.TagSetPowerState, powerStateLen, uint32(d), flags)

	if err != nil {
		return false, err
	}

	return bits.Get(&res[1], PowerOn, 1) == 1, nil
}

// PowerOffAll switches off every power manageable device, in Devices order,
// without waiting for transitions. It stops at the first failure.
func (c *Client) PowerOffAll() error {
	for d := range Devices() {
		if _, err := c.SetPowerState(d, false, false); err != nil {
			return fmt.Errorf("could not power off %s, %w", d, err)
		}
	}

	return nil
}
