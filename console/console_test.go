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

package console_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/jackwickham/raspi-firmware/console"
	"github.com/jackwickham/raspi-firmware/internal/testonly"
)

func TestLock(t *testing.T) {
	var l console.Lock

	if !l.TryLock() {
		t.Fatalf("TryLock of free lock failed")
	}

	if l.TryLock() {
		t.Fatalf("TryLock of held lock succeeded")
	}

	l.Unlock()

	if !l.TryLock() {
		t.Fatalf("TryLock after Unlock failed")
	}
}

func TestConsoleWrite(t *testing.T) {
	s := testonly.NewSerial(t, nil)
	c := console.New(s)

	n, err := c.Write([]byte("a\nb\n"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if got, want := n, 4; got != want {
		t.Errorf("Got %d bytes written, want %d", got, want)
	}

	if got, want := s.Out.String(), "a\r\nb\r\n"; got != want {
		t.Errorf("Got %q, want %q", got, want)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) WriteByte(c byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.WriteByte(c)
}

func TestConsoleLinesNotInterleaved(t *testing.T) {
	out := &lockedBuffer{}
	c := console.New(out)

	lines := []string{
		strings.Repeat("a", 200) + "\n",
		strings.Repeat("b", 200) + "\n",
		strings.Repeat("c", 200) + "\n",
	}

	var wg sync.WaitGroup

	for _, l := range lines {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(l string) {
				defer wg.Done()
				c.Write([]byte(l))
			}(l)
		}
	}

	wg.Wait()

	got := strings.Split(strings.TrimSuffix(out.buf.String(), "\r\n"), "\r\n")

	if len(got) != 30 {
		t.Fatalf("Got %d lines, want 30", len(got))
	}

	for _, l := range got {
		if l != strings.Repeat(l[:1], 200) {
			t.Errorf("Got interleaved line %q", l)
		}
	}
}
