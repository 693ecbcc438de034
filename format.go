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

package lx

import "github.com/Beariish/lx/internal/arena"

// formatLen bounds how much of a string value Format will render: at most
// formatLen-1 bytes are kept.
const formatLen = 64

// Format renders v the way `,` prints it: numbers in fixed-point notation
// (no scientific notation; fractional digits only when the fraction exceeds
// 1e-5, at most 6 of them, produced one at a time until the remaining
// fraction is zero, so 3.5 prints as "3.5" but 3.1, which is inexact in
// binary, prints as "3.100000"), strings verbatim but truncated to
// formatLen-1 bytes, and every other tag as its bracketed type name (e.g.
// "<nil>", "<fn>").
//
// The returned string is a copy; c's scratch buffer is reused by the next
// call to Format.
func (c *Context) Format(v Value) string {
	cell := v.cell()
	if cell == nil {
		return arena.Free.String()
	}
	switch cell.Tag {
	case arena.Number:
		return c.formatNumber(cell.Num)
	case arena.String:
		return c.formatString(c.cellText(cell))
	default:
		return cell.Tag.String()
	}
}

func (c *Context) formatNumber(n float64) string {
	buf := c.formatBuf[:0]

	intPart := int64(n)
	if intPart < 0 {
		intPart = -intPart
	}

	if n < 0 {
		buf = append(buf, '-')
	}

	digitsStart := len(buf)
	if intPart == 0 {
		buf = append(buf, '0')
	}
	for intPart > 0 {
		buf = append(buf, byte('0'+intPart%10))
		intPart /= 10
	}
	reverse(buf[digitsStart:])

	fracPart := n - float64(int64(n))
	if fracPart < 0 {
		fracPart = -fracPart
	}
	if fracPart > 0.00001 {
		buf = append(buf, '.')
		decimals := 0
		for fracPart > 0 && decimals < 6 {
			decimals++
			fracPart *= 10
			digit := int64(fracPart)
			fracPart -= float64(digit)
			buf = append(buf, byte('0'+digit))
		}
	}

	c.formatBuf = buf
	return string(buf)
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

func (c *Context) formatString(s string) string {
	if len(s) > formatLen-1 {
		s = s[:formatLen-1]
	}
	c.formatBuf = append(c.formatBuf[:0], s...)
	return string(c.formatBuf)
}
