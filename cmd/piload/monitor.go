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

//go:build !tamago
// +build !tamago

package main

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/goburrow/serial"
	"github.com/mattn/go-tty"
	"k8s.io/klog"

	"github.com/jackwickham/raspi-firmware/loader"
)

// Ctrl-] detaches the terminal, as in telnet
const escape = 0x1d

func attach(c *loader.Config) error {
	port, err := openPort(c)

	if err != nil {
		return fmt.Errorf("could not open %s, %w", c.Port, err)
	}
	defer port.Close()

	return monitor(port)
}

// monitor bridges the local terminal, in raw mode, to the device console
// until the escape character is typed.
func monitor(port io.ReadWriter) error {
	t, err := tty.Open()

	if err != nil {
		return err
	}
	defer t.Close()

	restore, err := t.Raw()

	if err != nil {
		return err
	}
	defer restore()

	klog.Infof("attached to console, Ctrl-] to exit")

	go func() {
		buf := make([]byte, 256)

		for {
			n, err := port.Read(buf)

			if n > 0 {
				t.Output().Write(buf[:n])
			}

			switch {
			case err == nil, errors.Is(err, serial.ErrTimeout):
				continue
			default:
				klog.Errorf("console read error, %v", err)
				return
			}
		}
	}()

	var buf [utf8.UTFMax]byte

	for {
		r, err := t.ReadRune()

		if err != nil {
			return err
		}

		if r == escape {
			return nil
		}

		n := utf8.EncodeRune(buf[:], r)

		if _, err = port.Write(buf[:n]); err != nil {
			return err
		}
	}
}
