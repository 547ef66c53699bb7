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

// Package loader implements the host side of the firmware self-update
// protocol.
package loader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/jackwickham/raspi-firmware/update"
)

// images are streamed in chunks to report progress
const chunkSize = 1024

var (
	// ErrCancelled is returned when the device refuses the image.
	ErrCancelled = errors.New("update cancelled by device")
	// ErrEmptyImage is returned when pushing an image without contents.
	ErrEmptyImage = errors.New("empty image")
)

// Push sends the update trigger and the image size, waits for the device to
// accept the update and streams the image.
//
// Console output preceding the device answer is discarded. Image bytes
// written to the device are also written to progress, when not nil.
func Push(rw io.ReadWriter, image []byte, progress io.Writer) (err error) {
	if len(image) == 0 {
		return ErrEmptyImage
	}

	if uint64(len(image)) > math.MaxUint32 {
		return fmt.Errorf("image size %d exceeds protocol limit", len(image))
	}

	req := []byte{update.Trigger}
	req = binary.LittleEndian.AppendUint32(req, uint32(len(image)))

	if _, err = rw.Write(req); err != nil {
		return fmt.Errorf("could not send image size, %w", err)
	}

	if err = waitReady(rw); err != nil {
		return
	}

	for off := 0; off < len(image); off += chunkSize {
		chunk := image[off:min(off+chunkSize, len(image))]

		if _, err = rw.Write(chunk); err != nil {
			return fmt.Errorf("could not send image at offset %#x, %w", off, err)
		}

		if progress != nil {
			if _, err = progress.Write(chunk); err != nil {
				return
			}
		}
	}

	return
}

func waitReady(r io.Reader) error {
	var buf [1]byte

	for {
		n, err := r.Read(buf[:])

		if err != nil {
			return fmt.Errorf("could not read device answer, %w", err)
		}

		if n == 0 {
			continue
		}

		switch buf[0] {
		case update.Ready:
			return nil
		case update.Cancel:
			return ErrCancelled
		}
	}
}
