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

package update

// Plan represents the relocation of the update handler for a given image.
type Plan struct {
	// Size is the image size.
	Size uint32
	// Load is the image load address.
	Load uint32
	// Target is the relocated handler address.
	Target uint32
	// Handler is the handler code.
	Handler []byte
}

// handler code is relocated on a word boundary
const codeAlign = 4

func align(addr uint32) uint32 {
	return (addr + codeAlign - 1) &^ (codeAlign - 1)
}

// Available returns the largest image size which can be received, given the
// total memory, load address and handler length.
//
// The handler must end within memory once aligned, so the last handler
// address is rounded down to a word boundary.
func Available(total uint32, load uint32, handlerLen int) uint32 {
	if uint64(handlerLen) >= uint64(total) {
		return 0
	}

	last := (total - uint32(handlerLen)) &^ (codeAlign - 1)

	if load >= last {
		return 0
	}

	return last - load
}

// NewPlan computes the handler relocation for an image of size n.
//
// The handler is placed past both the new image and the running program, so
// that receiving the image never overwrites the handler and copying the
// handler never overwrites code still in use.
func NewPlan(n uint32, total uint32, load uint32, programEnd uint32, handler []byte) (*Plan, error) {
	if avail := Available(total, load, len(handler)); n > avail {
		return nil, &TooLargeError{
			Size:      n,
			Available: avail,
		}
	}

	return &Plan{
		Size:    n,
		Load:    load,
		Target:  align(max(n+load, programEnd)),
		Handler: handler,
	}, nil
}
