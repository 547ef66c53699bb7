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

// Package videocore implements typed VideoCore firmware requests over the
// mailbox property interface.
//
// Every request is a single round trip, errors from the mailbox layer are
// returned unchanged and no request is retried.
package videocore

import (
	"encoding/binary"
	"net"

	"github.com/jackwickham/raspi-firmware/mailbox"
)

// Response lengths, in bytes, of each request.
const (
	firmwareRevisionLen = 4
	boardModelLen       = 4
	boardRevisionLen    = 4
	macAddressLen       = 6
	serialNumberLen     = 8
	memoryLen           = 8
	powerStateLen       = 8
	clockRateLen        = 8
)

// MemoryRegion represents a memory range reported by the firmware.
type MemoryRegion struct {
	Base uint32
	Size uint32
}

// End returns the first address past the region.
func (r MemoryRegion) End() uint32 {
	return r.Base + r.Size
}

// Client represents a VideoCore firmware property interface instance.
type Client struct {
	mb *mailbox.Mailbox
}

// NewClient returns a property interface instance over a mailbox transport.
func NewClient(mb *mailbox.Mailbox) *Client {
	return &Client{
		mb: mb,
	}
}

func (c *Client) query(tag mailbox.Tag, expected uint32, req ...uint32) ([]uint32, error) {
	m := mailbox.NewMessage()

	if err := m.Send(c.mb, tag, req, expected); err != nil {
		return nil, err
	}

	return m.Response(), nil
}

func (c *Client) word(tag mailbox.Tag, expected uint32) (uint32, error) {
	res, err := c.query(tag, expected)

	if err != nil {
		return 0, err
	}

	return res[0], nil
}

// FirmwareRevision returns the VideoCore firmware revision.
func (c *Client) FirmwareRevision() (uint32, error) {
	return c.word(mailbox.TagFirmwareRevision, firmwareRevisionLen)
}

// BoardModel returns the board model.
func (c *Client) BoardModel() (uint32, error) {
	return c.word(mailbox.TagBoardModel, boardModelLen)
}

// BoardRevision returns the board revision code.
func (c *Client) BoardRevision() (uint32, error) {
	return c.word(mailbox.TagBoardRevision, boardRevisionLen)
}

// MACAddress returns the board MAC address, in network byte order.
func (c *Client) MACAddress() (net.HardwareAddr, error) {
	res, err := c.query(mailbox.TagMACAddress, macAddressLen)

	if err != nil {
		return nil, err
	}

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], res[0])
	binary.LittleEndian.PutUint32(buf[4:8], res[1])

	return net.HardwareAddr(buf[:macAddressLen]), nil
}

// SerialNumber returns the board serial number.
func (c *Client) SerialNumber() (uint64, error) {
	res, err := c.query(mailbox.TagBoardSerial, serialNumberLen)

	if err != nil {
		return 0, err
	}

	return uint64(res[0]) + uint64(res[1])<<32, nil
}

func (c *Client) memory(tag mailbox.Tag) (r MemoryRegion, err error) {
	res, err := c.query(tag, memoryLen)

	if err != nil {
		return
	}

	r.Base = res[0]
	r.Size = res[1]

	return
}

// ARMMemory returns the memory region assigned to the ARM core.
//
// The region is queried on each invocation as it can shrink after frame
// buffer allocation.
func (c *Client) ARMMemory() (MemoryRegion, error) {
	return c.memory(mailbox.TagARMMemory)
}

// VCMemory returns the memory region assigned to the VideoCore.
func (c *Client) VCMemory() (MemoryRegion, error) {
	return c.memory(mailbox.TagVCMemory)
}
