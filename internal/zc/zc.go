// Copyright 2026 The lx Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package zc provides zero-copy (offset, length) ranges into a larger byte
// buffer, used to represent String and Symbol cell payloads without ever
// copying the underlying bytes (spec invariant: string/symbol payloads
// never own memory).
package zc

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/Beariish/lx/internal/debug"
)

// Range is an (offset, length) pair relative to some larger byte buffer,
// such as a Context's program-text buffer or a host-owned string.
//
// This is a packed representation with the layout:
//
//	struct {
//	  offset, len uint32
//	}
//
// The zero value faithfully represents an empty range at offset zero.
type Range uint64

// New packs offset and length into a Range.
func New(offset, length int) Range {
	debug.Assert(offset >= 0 && length >= 0 && offset <= math.MaxUint32 && length <= math.MaxUint32,
		"offset/length out of bounds for zc.Range: [%d:+%d]", offset, length)
	return Range(uint32(offset)) | Range(uint32(length))<<32
}

// Start returns the start offset of this range within its source.
func (r Range) Start() int { return int(uint32(r)) }

// Len returns the length of this range.
func (r Range) Len() int { return int(uint32(r >> 32)) }

// End returns the one-past-the-end offset of this range within its source.
func (r Range) End() int { return r.Start() + r.Len() }

// Bytes slices src down to this range.
func (r Range) Bytes(src []byte) []byte {
	return src[r.Start():r.End()]
}

// String materializes this range as a string over src without copying.
//
// The returned string aliases src; it must not outlive src.
func (r Range) String(src []byte) string {
	if r.Len() == 0 {
		return ""
	}
	b := r.Bytes(src)
	return unsafe.String(&b[0], len(b))
}

// Format implements fmt.Formatter for diagnostics.
func (r Range) Format(s fmt.State, verb rune) {
	fmt.Fprintf(s, "[%d:%d]", r.Start(), r.End())
}
