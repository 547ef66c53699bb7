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

package loader

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	// ErrNoLoadable is returned for ELF files without loadable segments.
	ErrNoLoadable = errors.New("no loadable segment in ELF file")
)

// Image represents a flat firmware image.
type Image struct {
	// Load is the physical address of the first image byte.
	Load uint32
	// Entry is the ELF entry point.
	Entry uint32
	// Data is the image contents, with uninitialized data zeroed.
	Data []byte
}

// Flatten converts an ELF executable to a flat image spanning all loadable
// segments, as written by the boot firmware at the load address.
func Flatten(r io.ReaderAt) (img *Image, err error) {
	f, err := elf.NewFile(r)

	if err != nil {
		return nil, fmt.Errorf("could not parse ELF file, %w", err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 || f.Machine != elf.EM_ARM {
		return nil, fmt.Errorf("unsupported ELF file %v/%v", f.Class, f.Machine)
	}

	var start, end uint64 = math.MaxUint64, 0
	var progs []*elf.Prog

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Memsz == 0 {
			continue
		}

		if prog.Filesz > prog.Memsz {
			return nil, fmt.Errorf("segment at %#x larger on file than in memory", prog.Paddr)
		}

		start = min(start, prog.Paddr)
		end = max(end, prog.Paddr+prog.Memsz)

		progs = append(progs, prog)
	}

	if len(progs) == 0 {
		return nil, ErrNoLoadable
	}

	if end > math.MaxUint32 {
		return nil, fmt.Errorf("segment end %#x out of address space", end)
	}

	img = &Image{
		Load:  uint32(start),
		Entry: uint32(f.Entry),
		Data:  make([]byte, end-start),
	}

	for _, prog := range progs {
		if prog.Filesz == 0 {
			continue
		}

		off := prog.Paddr - start

		if _, err = prog.ReadAt(img.Data[off:off+prog.Filesz], 0); err != nil {
			return nil, fmt.Errorf("could not read segment at %#x, %w", prog.Paddr, err)
		}
	}

	return
}
