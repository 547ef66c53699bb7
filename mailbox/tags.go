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

// Tag identifies a property tag request.
type Tag uint32

// Property tags, raspberrypi/firmware wiki, Mailbox property interface.
const (
	TagEnd Tag = 0x00000000

	TagFirmwareRevision Tag = 0x00000001

	TagBoardModel    Tag = 0x00010001
	TagBoardRevision Tag = 0x00010002
	TagMACAddress    Tag = 0x00010003
	TagBoardSerial   Tag = 0x00010004
	TagARMMemory     Tag = 0x00010005
	TagVCMemory      Tag = 0x00010006
	TagClocks        Tag = 0x00010007

	TagGetPowerState Tag = 0x00020001
	TagSetPowerState Tag = 0x00028001

	TagGetClockRate    Tag = 0x00030002
	TagGetMaxClockRate Tag = 0x00030004
	TagSetClockRate    Tag = 0x00038002

	TagAllocateBuffer   Tag = 0x00040001
	TagGetPitch         Tag = 0x00040008
	TagSetPhysicalSize  Tag = 0x00048003
	TagSetVirtualSize   Tag = 0x00048004
	TagSetDepth         Tag = 0x00048005
	TagSetPixelOrder    Tag = 0x00048006
	TagSetAlphaMode     Tag = 0x00048007
	TagSetVirtualOffset Tag = 0x00048009
	TagSetOverscan      Tag = 0x0004800a
)

// Buffer request/response codes.
const (
	Request uint32 = 0x00000000
	Success uint32 = 0x80000000
	Failure uint32 = 0x80000001
)

// ResponseBit marks a tag length field as written by the VideoCore.
const ResponseBit = 1 << 31
