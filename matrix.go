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

import (
	"github.com/pkg/errors"
	"github.com/templexxx/xorsimd"
)

// Byte-slice kernels over GF(2^8). These replace the jerasure
// matrix_dotprod/matrix_decode pair with an equivalent pure-Go
// implementation; the matrix layout stays row-major ints so the encoding
// matrix remains inspectable in the original form.

// gfMulSlice writes c*in into out, elementwise over the field.
func gfMulSlice(c int, in, out []byte) {
	gfInit()
	if c == 1 {
		copy(out, in)
		return
	}
	mt := &gfMulTab[c]
	for i, b := range in {
		out[i] = mt[b]
	}
}

// gfMulSliceXor xors c*in into out.
func gfMulSliceXor(c int, in, out []byte) {
	gfInit()
	if c == 1 {
		xorsimd.Bytes(out, out, in)
		return
	}
	mt := &gfMulTab[c]
	for i, b := range in {
		out[i] ^= mt[b]
	}
}

// rowIsXor reports whether every coefficient of a matrix row is 0 or 1,
// i.e. the dot product degenerates into a plain XOR.
func rowIsXor(row []int) bool {
	for _, c := range row {
		if c > 1 {
			return false
		}
	}
	return true
}

// matrixDotprod computes the dot product of one encoding-matrix row with
// the source chunks and writes the result into the destination chunk.
// The contract mirrors the jerasure kernel: destID below k addresses
// data, destID at or above k addresses code; a nil srcIDs means "all k
// data chunks in order". size is the number of bytes per chunk.
func matrixDotprod(k int, row []int, srcIDs []int, destID int, data, code [][]byte, size int) {
	var dst []byte
	if destID < k {
		dst = data[destID][:size]
	} else {
		dst = code[destID-k][:size]
	}

	src := func(i int) []byte {
		id := i
		if srcIDs != nil {
			id = srcIDs[i]
		}
		if id < k {
			return data[id][:size]
		}
		return code[id-k][:size]
	}

	// All-ones rows (local parities, global row 0) are pure XOR and go
	// through the SIMD path.
	if rowIsXor(row) {
		ones := make([][]byte, 0, len(row))
		for c, coef := range row {
			if coef != 0 {
				ones = append(ones, src(c))
			}
		}
		if len(ones) == 0 {
			clear(dst)
			return
		}
		xorsimd.Encode(dst, ones)
		return
	}

	first := true
	for c, coef := range row {
		if coef == 0 {
			continue
		}
		if first {
			gfMulSlice(coef, src(c), dst)
			first = false
		} else {
			gfMulSliceXor(coef, src(c), dst)
		}
	}
	if first {
		clear(dst)
	}
}

// solveLinear solves A*x = rhs over GF(2^8) by Gauss-Jordan elimination
// with row pivoting. A has unknowns columns and at least that many rows;
// extra rows are redundant equations that elimination may pivot into.
// On success rhs[j] holds the value of unknown j. A and rhs are consumed.
func solveLinear(a [][]int, rhs [][]byte, unknowns int) error {
	if len(a) < unknowns {
		return errors.WithStack(ErrUnrecoverable)
	}
	for col := 0; col < unknowns; col++ {
		pivot := -1
		for r := col; r < len(a); r++ {
			if a[r][col] != 0 {
				pivot = r
				break
			}
		}
		if pivot < 0 {
			// Dependent equations only; the chosen rows cannot
			// separate this unknown.
			return errors.WithStack(ErrUnrecoverable)
		}
		a[col], a[pivot] = a[pivot], a[col]
		rhs[col], rhs[pivot] = rhs[pivot], rhs[col]

		if d := a[col][col]; d != 1 {
			inv := GfDiv(1, d)
			for c := col; c < unknowns; c++ {
				a[col][c] = GfMul(inv, a[col][c])
			}
			gfMulSlice(inv, rhs[col], rhs[col])
		}

		for r := 0; r < len(a); r++ {
			if r == col || a[r][col] == 0 {
				continue
			}
			f := a[r][col]
			for c := col; c < unknowns; c++ {
				a[r][c] ^= GfMul(f, a[col][c])
			}
			gfMulSliceXor(f, rhs[col], rhs[r])
		}
	}
	return nil
}
