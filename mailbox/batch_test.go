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

package mailbox_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jackwickham/raspi-firmware/internal/testonly"
	"github.com/jackwickham/raspi-firmware/mailbox"
)

func TestBatch(t *testing.T) {
	vc := testonly.NewVideoCore(t, map[mailbox.Tag]testonly.Handler{
		mailbox.TagSetPhysicalSize: testonly.Echo(),
		mailbox.TagSetDepth:        testonly.Reply(16),
		mailbox.TagGetPitch:        testonly.Reply(2560),
	})

	b := mailbox.NewBatch()

	size, err := b.Add(mailbox.TagSetPhysicalSize, 8, 640, 480)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	depth, err := b.Add(mailbox.TagSetDepth, 4, 32)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	pitch, err := b.Add(mailbox.TagGetPitch, 4)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := b.Send(vc.Mailbox()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	want := [][]mailbox.Tag{{mailbox.TagSetPhysicalSize, mailbox.TagSetDepth, mailbox.TagGetPitch}}

	if diff := cmp.Diff(want, vc.Requests); diff != "" {
		t.Errorf("Unexpected tags, diff:\n%s", diff)
	}

	for _, test := range []struct {
		blk  mailbox.Block
		want []uint32
	}{
		{blk: size, want: []uint32{640, 480}},
		{blk: depth, want: []uint32{16}},
		{blk: pitch, want: []uint32{2560}},
	} {
		if diff := cmp.Diff(test.want, b.Response(test.blk)); diff != "" {
			t.Errorf("Unexpected %#x response, diff:\n%s", uint32(test.blk.Tag), diff)
		}
	}
}

func TestBatchErrors(t *testing.T) {
	for _, test := range []struct {
		name    string
		handler testonly.Handler
		code    uint32
		noResp  bool
		wantErr error
	}{
		{
			name:    "rejected",
			handler: testonly.Reply(0),
			code:    mailbox.Failure,
			wantErr: mailbox.ErrRejected,
		}, {
			name:    "unknown code",
			handler: testonly.Reply(0),
			code:    1,
			wantErr: mailbox.ErrUnknownResponse,
		}, {
			name:    "missing response bit",
			handler: testonly.Reply(0),
			noResp:  true,
			wantErr: mailbox.ErrUnknownResponse,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			vc := testonly.NewVideoCore(t, map[mailbox.Tag]testonly.Handler{
				mailbox.TagGetPitch: test.handler,
			})
			vc.Code = test.code
			vc.NoResponseBit = test.noResp

			b := mailbox.NewBatch()

			if _, err := b.Add(mailbox.TagGetPitch, 4); err != nil {
				t.Fatalf("Add: %v", err)
			}

			if err := b.Send(vc.Mailbox()); !errors.Is(err, test.wantErr) {
				t.Errorf("Got err %v, want %v", err, test.wantErr)
			}
		})
	}
}

func TestBatchResponseTooLong(t *testing.T) {
	vc := testonly.NewVideoCore(t, map[mailbox.Tag]testonly.Handler{
		mailbox.TagGetPitch: testonly.ReplyN(12, 1),
	})

	b := mailbox.NewBatch()

	if _, err := b.Add(mailbox.TagGetPitch, 4); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var sErr *mailbox.SizeError

	if err := b.Send(vc.Mailbox()); !errors.As(err, &sErr) {
		t.Fatalf("Got err %v, want SizeError", err)
	}

	if got, want := sErr.Actual, uint32(12); got != want {
		t.Errorf("Got actual length %d, want %d", got, want)
	}
}

func TestBatchOverflow(t *testing.T) {
	b := mailbox.NewBatch()

	if _, err := b.Add(mailbox.TagSetClockRate, 4, 1, 2); !errors.Is(err, mailbox.ErrOverflow) {
		t.Errorf("Got err %v for oversized request, want %v", err, mailbox.ErrOverflow)
	}

	for _, size := range []uint32{0xfffffffd, 0xffffffff, mailbox.BatchWords * 4} {
		if _, err := b.Add(mailbox.TagGetPitch, size); !errors.Is(err, mailbox.ErrOverflow) {
			t.Errorf("Got err %v for value buffer of %#x bytes, want %v", err, size, mailbox.ErrOverflow)
		}
	}

	var err error

	for i := 0; err == nil && i <= mailbox.MaxBlocks; i++ {
		_, err = b.Add(mailbox.TagGetPitch, 4)
	}

	if !errors.Is(err, mailbox.ErrOverflow) {
		t.Errorf("Got err %v past block capacity, want %v", err, mailbox.ErrOverflow)
	}
}
