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

package videocore_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jackwickham/raspi-firmware/internal/testonly"
	"github.com/jackwickham/raspi-firmware/mailbox"
	"github.com/jackwickham/raspi-firmware/videocore"
)

var vga = videocore.Geometry{
	Width:         640,
	Height:        480,
	VirtualWidth:  640,
	VirtualHeight: 480,
	Depth:         32,
	PixelOrder:    videocore.RGB,
}

func displayHandlers() map[mailbox.Tag]testonly.Handler {
	return map[mailbox.Tag]testonly.Handler{
		mailbox.TagSetPhysicalSize:  testonly.Echo(),
		mailbox.TagSetVirtualSize:   testonly.Echo(),
		mailbox.TagSetVirtualOffset: testonly.Echo(),
		mailbox.TagSetDepth:         testonly.Echo(),
		mailbox.TagSetPixelOrder:    testonly.Echo(),
		mailbox.TagAllocateBuffer:   testonly.Reply(0xde01c000, 640*480*4),
		mailbox.TagGetPitch:         testonly.Reply(640 * 4),
	}
}

func TestAllocateFrameBuffer(t *testing.T) {
	c, vc := newClient(t, displayHandlers())

	fb, err := c.AllocateFrameBuffer(vga)
	if err != nil {
		t.Fatalf("AllocateFrameBuffer: %v", err)
	}

	want := &videocore.FrameBuffer{
		Geometry: vga,
		Address:  0x1e01c000,
		Size:     640 * 480 * 4,
		Pitch:    640 * 4,
	}

	if diff := cmp.Diff(want, fb); diff != "" {
		t.Errorf("Unexpected frame buffer, diff:\n%s", diff)
	}

	if got, want := len(vc.Requests), 1; got != want {
		t.Errorf("Got %d round trips, want %d", got, want)
	}
}

func TestAllocateFrameBufferRejected(t *testing.T) {
	for _, test := range []struct {
		name    string
		tag     mailbox.Tag
		handler testonly.Handler
		want    *videocore.RejectedError
	}{
		{
			name:    "depth lowered",
			tag:     mailbox.TagSetDepth,
			handler: testonly.Reply(16),
			want: &videocore.RejectedError{
				Tag:  mailbox.TagSetDepth,
				Want: []uint32{32},
				Got:  []uint32{16},
			},
		}, {
			name:    "pixel order forced",
			tag:     mailbox.TagSetPixelOrder,
			handler: testonly.Reply(videocore.BGR),
			want: &videocore.RejectedError{
				Tag:  mailbox.TagSetPixelOrder,
				Want: []uint32{videocore.RGB},
				Got:  []uint32{videocore.BGR},
			},
		}, {
			name:    "physical size clamped",
			tag:     mailbox.TagSetPhysicalSize,
			handler: testonly.Reply(320, 240),
			want: &videocore.RejectedError{
				Tag:  mailbox.TagSetPhysicalSize,
				Want: []uint32{640, 480},
				Got:  []uint32{320, 240},
			},
		}, {
			name:    "short echo",
			tag:     mailbox.TagSetVirtualSize,
			handler: testonly.Reply(640),
			want: &videocore.RejectedError{
				Tag:  mailbox.TagSetVirtualSize,
				Want: []uint32{640, 480},
				Got:  []uint32{640},
			},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			h := displayHandlers()
			h[test.tag] = test.handler

			c, _ := newClient(t, h)

			fb, err := c.AllocateFrameBuffer(vga)

			var rErr *videocore.RejectedError

			if !errors.As(err, &rErr) {
				t.Fatalf("Got err %v, want RejectedError", err)
			}

			if fb != nil {
				t.Errorf("Got frame buffer %+v, want nil", fb)
			}

			if diff := cmp.Diff(test.want, rErr); diff != "" {
				t.Errorf("Unexpected error, diff:\n%s", diff)
			}
		})
	}
}

func TestAllocateFrameBufferNotAllocated(t *testing.T) {
	for _, test := range []struct {
		name    string
		handler testonly.Handler
	}{
		{
			name:    "zero address",
			handler: testonly.Reply(0, 640*480*4),
		}, {
			name:    "zero size",
			handler: testonly.Reply(0xde01c000, 0),
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			h := displayHandlers()
			h[mailbox.TagAllocateBuffer] = test.handler

			c, _ := newClient(t, h)

			if _, err := c.AllocateFrameBuffer(vga); !errors.Is(err, videocore.ErrNoFrameBuffer) {
				t.Errorf("Got err %v, want %v", err, videocore.ErrNoFrameBuffer)
			}
		})
	}
}
