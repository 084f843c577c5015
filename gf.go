// The MIT License (MIT)
//
// Copyright (c) 2015 Zhang Yanpo (张炎泼) <drdr.xp@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package lrc

import "sync"

// GF(2^8) with the Rijndael reduction polynomial x^8+x^4+x^3+x^2+1 (0x11d),
// generator alpha = 2. The log and antilog tables are built once on first
// use; all field operations are table lookups afterwards.

const gfPoly = 0x11d

var (
	gfOnce    sync.Once
	gfLog     [256]int
	gfAntilog [256]int
	// gfMulTab[x][y] = x*y over the field, for slice kernels.
	gfMulTab [256][256]byte
)

func gfInit() {
	gfOnce.Do(func() {
		x := 1
		for e := 0; e < 255; e++ {
			gfAntilog[e] = x
			gfLog[x] = e
			x <<= 1
			if x&0x100 != 0 {
				x ^= gfPoly
			}
		}
		// gfAntilog[255] aliases alpha^0; exponents are reduced mod 255
		// before lookup, the slot only exists to keep indexing branchless.
		gfAntilog[255] = 1

		for a := 1; a < 256; a++ {
			for b := 1; b < 256; b++ {
				gfMulTab[a][b] = byte(gfAntilog[(gfLog[a]+gfLog[b])%255])
			}
		}
	})
}

// GfMul returns x*y over GF(2^8).
func GfMul(x, y int) int {
	gfInit()
	return int(gfMulTab[x][y])
}

// GfDiv returns x/y over GF(2^8). Division by zero is a caller bug and
// panics; matrix construction never produces a zero divisor.
func GfDiv(x, y int) int {
	gfInit()
	if y == 0 {
		panic("lrc: division by zero in GF(2^8)")
	}
	if x == 0 {
		return 0
	}
	return gfAntilog[(gfLog[x]-gfLog[y]+255)%255]
}

// GfPower returns alpha^e, the e-th power of the field generator.
func GfPower(e int) int {
	gfInit()
	return gfAntilog[e%255]
}
