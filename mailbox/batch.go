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

package mailbox

import (
	"unsafe"
)

const (
	// BatchWords is the total number of words of a multi tag buffer.
	BatchWords = 48
	// MaxBlocks is the maximum number of tags within a multi tag buffer.
	MaxBlocks = 8
)

// tag block header: tag, value buffer size, request/response length
const blockHeaderWords = 3

// largest value buffer of a single block, in bytes
const maxBlockSize = (BatchWords - tagOffset - blockHeaderWords - 1) * 4

// Block identifies a tag within a Batch.
type Block struct {
	Tag Tag

	off  int
	size uint32
}

// Batch represents a property buffer carrying a sequence of tags, executed
// in a single round trip.
type Batch struct {
	raw [BatchWords + alignWords - 1]uint32
	w   []uint32
	end int

	blocks [MaxBlocks]Block
	n      int
}

// NewBatch returns an empty multi tag request.
func NewBatch() *Batch {
	b := &Batch{}
	b.w = aligned(b.raw[:], BatchWords)

	b.w[sizeOffset] = BatchWords * 4
	b.w[codeOffset] = Request
	b.end = tagOffset

	return b
}

// Add appends a tag block with a value buffer of size bytes, holding the
// request words.
func (b *Batch) Add(tag Tag, size uint32, req ...uint32) (Block, error) {
	if size > maxBlockSize {
		return Block{}, ErrOverflow
	}

	words := int(size+3) / 4

	if b.n == MaxBlocks || len(req) > words || b.end+blockHeaderWords+words >= BatchWords {
		return Block{}, ErrOverflow
	}

	blk := Block{
		Tag:  tag,
		off:  b.end,
		size: uint32(words * 4),
	}

	b.w[blk.off] = uint32(tag)
	b.w[blk.off+1] = blk.size
	b.w[blk.off+2] = uint32(len(req) * 4)
	copy(b.w[blk.off+blockHeaderWords:], req)

	b.end += blockHeaderWords + words
	b.w[b.end] = uint32(TagEnd)

	b.blocks[b.n] = blk
	b.n++

	return blk, nil
}

// Send performs the batched request over the property channel and validates
// the response of every tag block.
func (b *Batch) Send(mb *Mailbox) (err error) {
	addr := mb.address(unsafe.Pointer(&b.w[0]))
	mb.Call(addr, PropertyTagsARM)

	if err = checkCode(b.w[codeOffset]); err != nil {
		return
	}

	for _, blk := range b.blocks[:b.n] {
		length := b.w[blk.off+2]

		if length&ResponseBit == 0 {
			return ErrUnknownResponse
		}

		if n := length &^ ResponseBit; n > blk.size {
			return &SizeError{
				Tag:      blk.Tag,
				Expected: blk.size,
				Actual:   n,
			}
		}
	}

	return
}

// Response returns the response value words of a tag block.
func (b *Batch) Response(blk Block) []uint32 {
	n := b.w[blk.off+2] &^ ResponseBit

	if n > blk.size {
		n = blk.size
	}

	off := blk.off + blockHeaderWords

	return b.w[off : off+int(n+3)/4]
}
