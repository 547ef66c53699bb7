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

//go:build tamago && arm

package main

import (
	_ "unsafe"
)

const (
	// Firmware images are loaded (config.txt kernel_address) and received
	// at the text start, memory below it holds the exception vectors and
	// page tables.
	loadAddress = 0x00080000

	runtimeStart = 0x00070000
	runtimeSize  = 0x0ff90000 // ~256MB
)

//go:linkname ramStart runtime.ramStart
var ramStart uint32 = runtimeStart

//go:linkname ramSize runtime.ramSize
var ramSize uint32 = runtimeSize
