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
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jackwickham/raspi-firmware/internal/testonly"
	"github.com/jackwickham/raspi-firmware/mailbox"
	"github.com/jackwickham/raspi-firmware/videocore"
)

func newClient(t *testing.T, handlers map[mailbox.Tag]testonly.Handler) (*videocore.Client, *testonly.VideoCore) {
	t.Helper()
	vc := testonly.NewVideoCore(t, handlers)
	return videocore.NewClient(vc.Mailbox()), vc
}

func TestWordQueries(t *testing.T) {
	for _, test := range []struct {
		name string
		tag  mailbox.Tag
		call func(*videocore.Client) (uint32, error)
	}{
		{
			name: "firmware revision",
			tag:  mailbox.TagFirmwareRevision,
			call: (*videocore.Client).FirmwareRevision,
		}, {
			name: "board model",
			tag:  mailbox.TagBoardModel,
			call: (*videocore.Client).BoardModel,
		}, {
			name: "board revision",
			tag:  mailbox.TagBoardRevision,
			call: (*videocore.Client).BoardRevision,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			c, _ := newClient(t, map[mailbox.Tag]testonly.Handler{
				test.tag: testonly.Reply(0x9000c1),
			})

			got, err := test.call(c)
			if err != nil {
				t.Fatalf("Got err %v", err)
			}

			if want := uint32(0x9000c1); got != want {
				t.Errorf("Got %#x, want %#x", got, want)
			}
		})
	}
}

func TestMACAddress(t *testing.T) {
	c, _ := newClient(t, map[mailbox.Tag]testonly.Handler{
		mailbox.TagMACAddress: testonly.ReplyN(6, 0x04030201, 0x00000605),
	})

	got, err := c.MACAddress()
	if err != nil {
		t.Fatalf("MACAddress: %v", err)
	}

	want := net.HardwareAddr{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected MAC, diff:\n%s", diff)
	}
}

func TestSerialNumber(t *testing.T) {
	c, _ := newClient(t, map[mailbox.Tag]testonly.Handler{
		mailbox.TagBoardSerial: testonly.Reply(0x12345678, 0x00000001),
	})

	got, err := c.SerialNumber()
	if err != nil {
		t.Fatalf("SerialNumber: %v", err)
	}

	if want := uint64(0x0000000112345678); got != want {
		t.Errorf("Got %#x, want %#x", got, want)
	}
}

func TestMemory(t *testing.T) {
	c, _ := newClient(t, map[mailbox.Tag]testonly.Handler{
		mailbox.TagARMMemory: testonly.Reply(0, 0x1c000000),
		mailbox.TagVCMemory:  testonly.Reply(0x1c000000, 0x04000000),
	})

	arm, err := c.ARMMemory()
	if err != nil {
		t.Fatalf("ARMMemory: %v", err)
	}

	vc, err := c.VCMemory()
	if err != nil {
		t.Fatalf("VCMemory: %v", err)
	}

	if diff := cmp.Diff(videocore.MemoryRegion{Base: 0, Size: 0x1c000000}, arm); diff != "" {
		t.Errorf("Unexpected ARM memory, diff:\n%s", diff)
	}

	if got, want := vc.End(), uint32(0x20000000); got != want {
		t.Errorf("Got VC memory end %#x, want %#x", got, want)
	}
}

func TestSizeMismatchPropagated(t *testing.T) {
	c, _ := newClient(t, map[mailbox.Tag]testonly.Handler{
		mailbox.TagBoardSerial: testonly.Reply(1),
	})

	_, err := c.SerialNumber()

	var sErr *mailbox.SizeError

	if !errors.As(err, &sErr) {
		t.Fatalf("Got err %v, want SizeError", err)
	}

	if got, want := sErr.Actual, uint32(4); got != want {
		t.Errorf("Got actual length %d, want %d", got, want)
	}
}

func TestSetPowerState(t *testing.T) {
	for _, test := range []struct {
		name      string
		on        bool
		wait      bool
		state     uint32
		wantFlags uint32
		want      bool
	}{
		{
			name:      "on and wait",
			on:        true,
			wait:      true,
			state:     0x1,
			wantFlags: 0x3,
			want:      true,
		}, {
			name:      "on without wait",
			on:        true,
			state:     0x1,
			wantFlags: 0x1,
			want:      true,
		}, {
			name:      "off and wait",
			wait:      true,
			state:     0x0,
			wantFlags: 0x2,
			want:      false,
		}, {
			name:      "missing device",
			on:        true,
			state:     0x2,
			wantFlags: 0x1,
			want:      false,
		}, {
			name:      "only the low bit counts",
			state:     0xfffffffe,
			wantFlags: 0x0,
			want:      false,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			var gotReq []uint32

			c, _ := newClient(t, map[mailbox.Tag]testonly.Handler{
				mailbox.TagSetPowerState: func(req []uint32) ([]uint32, uint32) {
					gotReq = req
					return []uint32{req[0], test.state}, 8
				},
			})

			got, err := c.SetPowerState(videocore.UART0, test.on, test.wait)
			if err != nil {
				t.Fatalf("SetPowerState: %v", err)
			}

			if got != test.want {
				t.Errorf("Got %v, want %v", got, test.want)
			}

			if diff := cmp.Diff([]uint32{uint32(videocore.UART0), test.wantFlags}, gotReq); diff != "" {
				t.Errorf("Unexpected request, diff:\n%s", diff)
			}
		})
	}
}

func TestPowerState(t *testing.T) {
	c, _ := newClient(t, map[mailbox.Tag]testonly.Handler{
		mailbox.TagGetPowerState: func(req []uint32) ([]uint32, uint32) {
			if videocore.Device(req[0]) == videocore.CCP2TX {
				return []uint32{req[0], 0x2}, 8
			}
			return []uint32{req[0], 0x1}, 8
		},
	})

	got, err := c.PowerState(videocore.SDCard)
	if err != nil {
		t.Fatalf("PowerState: %v", err)
	}

	if diff := cmp.Diff(videocore.PowerState{On: true, Exists: true}, got); diff != "" {
		t.Errorf("Unexpected SD card state, diff:\n%s", diff)
	}

	if got, err = c.PowerState(videocore.CCP2TX); err != nil {
		t.Fatalf("PowerState: %v", err)
	}

	if diff := cmp.Diff(videocore.PowerState{}, got); diff != "" {
		t.Errorf("Unexpected CCP2TX state, diff:\n%s", diff)
	}
}

func TestDevices(t *testing.T) {
	var got []videocore.Device

	for d := range videocore.Devices() {
		got = append(got, d)
	}

	want := []videocore.Device{
		videocore.SDCard, videocore.UART0, videocore.UART1, videocore.USBHCD,
		videocore.I2C0, videocore.I2C1, videocore.I2C2, videocore.SPI, videocore.CCP2TX,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected devices, diff:\n%s", diff)
	}

	for i, d := range want {
		if uint32(d) != uint32(i) {
			t.Errorf("Got %s encoded as %d, want %d", d, d, i)
		}
	}

	// restartable and stoppable
	n := 0
	for range videocore.Devices() {
		if n++; n == 3 {
			break
		}
	}

	if n != 3 {
		t.Errorf("Got %d iterations, want 3", n)
	}
}

func TestPowerOffAll(t *testing.T) {
	var got []videocore.Device

	c, _ := newClient(t, map[mailbox.Tag]testonly.Handler{
		mailbox.TagSetPowerState: func(req []uint32) ([]uint32, uint32) {
			got = append(got, videocore.Device(req[0]))

			if req[1] != 0 {
				t.Errorf("Got flags %#x, want 0", req[1])
			}

			return []uint32{req[0], 0}, 8
		},
	})

	if err := c.PowerOffAll(); err != nil {
		t.Fatalf("PowerOffAll: %v", err)
	}

	if got, want := len(got), 9; got != want {
		t.Errorf("Got %d devices powered off, want %d", got, want)
	}
}

func TestPowerOffAllStopsOnError(t *testing.T) {
	c, vc := newClient(t, map[mailbox.Tag]testonly.Handler{
		mailbox.TagSetPowerState: testonly.Reply(0, 0),
	})
	vc.Code = mailbox.Failure

	if err := c.PowerOffAll(); !errors.Is(err, mailbox.ErrRejected) {
		t.Fatalf("Got err %v, want %v", err, mailbox.ErrRejected)
	}

	if got, want := len(vc.Requests), 1; got != want {
		t.Errorf("Got %d requests, want %d", got, want)
	}
}

func TestClockRates(t *testing.T) {
	var setReq []uint32

	c, _ := newClient(t, map[mailbox.Tag]testonly.Handler{
		mailbox.TagGetClockRate:    testonly.Reply(uint32(videocore.ARM), 700000000),
		mailbox.TagGetMaxClockRate: testonly.Reply(uint32(videocore.ARM), 1000000000),
		mailbox.TagSetClockRate: func(req []uint32) ([]uint32, uint32) {
			setReq = req
			return []uint32{req[0], 3000000}, 8
		},
	})

	rate, err := c.ClockRate(videocore.ARM)
	if err != nil {
		t.Fatalf("ClockRate: %v", err)
	}

	if want := uint32(700000000); rate != want {
		t.Errorf("Got rate %d, want %d", rate, want)
	}

	maxRate, err := c.MaxClockRate(videocore.ARM)
	if err != nil {
		t.Fatalf("MaxClockRate: %v", err)
	}

	if want := uint32(1000000000); maxRate != want {
		t.Errorf("Got max rate %d, want %d", maxRate, want)
	}

	set, err := c.SetClockRate(videocore.UART, 4000000, true)
	if err != nil {
		t.Fatalf("SetClockRate: %v", err)
	}

	if want := uint32(3000000); set != want {
		t.Errorf("Got applied rate %d, want %d", set, want)
	}

	if diff := cmp.Diff([]uint32{uint32(videocore.UART), 4000000, 1}, setReq); diff != "" {
		t.Errorf("Unexpected request, diff:\n%s", diff)
	}
}

func TestClockNames(t *testing.T) {
	var got []string

	for c := range videocore.Clocks() {
		got = append(got, c.String())
	}

	want := []string{"EMMC", "UART", "ARM", "CORE", "V3D", "H264", "ISP", "SDRAM", "PIXEL", "PWM"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected clocks, diff:\n%s", diff)
	}
}
