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
	"errors"
	"fmt"
	"slices"

	"github.com/jackwickham/raspi-firmware/mailbox"
)

// Pixel orders.
const (
	BGR = 0
	RGB = 1
)

// frame buffer alignment requested on allocation
const frameBufferAlign = 4096

// VideoCore bus addresses carry the cache alias in the top two bits.
const busAddressMask = 0x3fffffff

// ErrNoFrameBuffer is returned when the firmware does not allocate a frame
// buffer.
var ErrNoFrameBuffer = errors.New("frame buffer not allocated")

// RejectedError is returned when the firmware does not apply a requested
// display setting as is.
type RejectedError struct {
	Tag  mailbox.Tag
	Want []uint32
	Got  []uint32
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("tag %#x applied %v, requested %v", uint32(e.Tag), e.Got, e.Want)
}

// Geometry represents a requested display configuration.
type Geometry struct {
	Width         uint32
	Height        uint32
	VirtualWidth  uint32
	VirtualHeight uint32
	OffsetX       uint32
	OffsetY       uint32
	Depth         uint32
	PixelOrder    uint32
}

// FrameBuffer represents an allocated frame buffer.
type FrameBuffer struct {
	Geometry

	// Address is the ARM physical address of the buffer.
	Address uint32
	Size    uint32
	Pitch   uint32
}

// AllocateFrameBuffer configures the display and allocates a frame buffer in
// a single property request.
//
// Every setting echoed by the firmware is compared against the request, an
// unsupported setting (e.g. a pixel depth silently lowered) results in a
// RejectedError rather than a buffer not matching the requested geometry.
func (c *Client) AllocateFrameBuffer(g Geometry) (fb *FrameBuffer, err error) {
	b := mailbox.NewBatch()

	settings := []struct {
		tag mailbox.Tag
		req []uint32
	}{
		{mailbox.TagSetPhysicalSize, []uint32{g.Width, g.Height}},
		{mailbox.TagSetVirtualSize, []uint32{g.VirtualWidth, g.VirtualHeight}},
		{mailbox.TagSetVirtualOffset, []uint32{g.OffsetX, g.OffsetY}},
		{mailbox.TagSetDepth, []uint32{g.Depth}},
		{mailbox.TagSetPixelOrder, []uint32{g.PixelOrder}},
	}

	blocks := make([]mailbox.Block, len(settings))

	for i, s := range settings {
		if blocks[i], err = b.Add(s.tag, uint32(len(s.req)*4), s.req...); err != nil {
			return
		}
	}

	alloc, err := b.Add(mailbox.TagAllocateBuffer, 8, frameBufferAlign)
	if err != nil {
		return
	}

	pitch, err := b.Add(mailbox.TagGetPitch, 4)
	if err != nil {
		return
	}

	if err = b.Send(c.mb); err != nil {
		return
	}

	for i, s := range settings {
		res := b.Response(blocks[i])

		if !slices.Equal(res, s.req) {
			return nil, &RejectedError{
				Tag:  s.tag,
				Want: s.req,
				Got:  append([]uint32(nil), res...),
			}
		}
	}

	res := b.Response(alloc)

	if len(res) != 2 || res[0] == 0 || res[1] == 0 {
		return nil, ErrNoFrameBuffer
	}

	fb = &FrameBuffer{
		Geometry: g,
		Address:  res[0] & busAddressMask,
		Size:     res[1],
	}

	if res = b.Response(pitch); len(res) == 1 {
		fb.Pitch = res[0]
	}

	return
}
