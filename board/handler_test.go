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

package board

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// branch returns the target word index of an ARM B instruction at index i.
func branch(op uint32, i int) (target int, ok bool) {
	if op>>25&0b111 != 0b101 || op>>28 == 0xf {
		return 0, false
	}

	// sign extended imm24, in words, relative to PC = instruction + 8
	imm := int32(op<<8) >> 8

	return i + 2 + int(imm), true
}

func TestReceiveAndJumpBranches(t *testing.T) {
	const (
		loop = 2
		wait = 4
		done = 11
	)

	want := map[int]int{
		3:  done, // beq done
		6:  wait, // bne wait
		10: loop, // b loop
	}

	got := make(map[int]int)

	for i, op := range receiveAndJump {
		if target, ok := branch(op, i); ok {
			got[i] = target
		}
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected branches, diff:\n%s", diff)
	}

	for _, test := range []struct {
		name  string
		index int
		op    uint32
	}{
		{name: "loop", index: loop, op: 0xe3510000},
		{name: "wait", index: wait, op: 0xe5923018},
		{name: "done", index: done, op: 0xe3a00000},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := receiveAndJump[test.index]; got != test.op {
				t.Errorf("Got %#08x at label, want %#08x", got, test.op)
			}
		})
	}
}

func TestReceiveAndJumpExit(t *testing.T) {
	// bx r4, r4 holds the load address
	if got, want := receiveAndJump[len(receiveAndJump)-1], uint32(0xe12fff14); got != want {
		t.Errorf("Got last instruction %#08x, want %#08x", got, want)
	}

	if got, want := len(handler), len(receiveAndJump)*4; got != want {
		t.Fatalf("Got handler length %d, want %d", got, want)
	}

	for i, op := range receiveAndJump {
		if got := binary.LittleEndian.Uint32(handler[i*4:]); got != op {
			t.Errorf("Got handler word %d %#08x, want %#08x", i, got, op)
		}
	}
}
