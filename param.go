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
)

// maxVector bounds the erased/source vectors. Derived from the field
// size (n <= 256) with headroom, kept for compatibility with the C ABI.
const maxVector = 512

// sentinel terminates erased and source vectors.
const sentinel = -1

// Local describes one locality group: Start is the index of its first
// data chunk, Len the number of data chunks it covers. Groups tile
// [0, k) without overlap.
type Local struct {
	Start int
	Len   int
}

// Param holds the immutable code parameters: the locality partition and
// the (L+m) x k encoding matrix. Chunk indices run data [0, k), local
// parities [k, k+L), global parities [k+L, n).
type Param struct {
	K int // data chunks
	M int // global parities
	N int // total chunks: K + L + M

	Locals []Local

	matrix     []int // (L+M) x K, row-major
	codeErased []int // all parity indices, sentinel-terminated; drives Encode
	inited     bool
}

// NLocal returns the number of locality groups, which is also the number
// of local parity chunks.
func (p *Param) NLocal() int {
	return len(p.Locals)
}

// Init builds the code parameters from the locality partition sizes and
// the global parity count. Each entry of localKs is the data-chunk count
// of one group. The field exhausts at 256 distinct rows, so
// k + L + m must not exceed 256; m and every group size must be at
// least 1.
func (p *Param) Init(localKs []int, m int) error {
	if p.inited {
		return errors.WithStack(ErrInitTwice)
	}
	if m < 1 {
		return errors.Wrap(ErrInvalidM, "at least one global parity required")
	}
	if len(localKs) < 1 {
		return errors.Wrap(ErrInvalidM, "at least one locality group required")
	}

	k := 0
	locals := make([]Local, len(localKs))
	for i, sz := range localKs {
		if sz < 1 {
			return errors.Wrapf(ErrInvalidM, "locality group %d has size %d", i, sz)
		}
		locals[i] = Local{Start: k, Len: sz}
		k += sz
	}

	nLocal := len(locals)
	if k+nLocal+m > 256 {
		return errors.Wrapf(ErrInvalidM, "k+L+m = %d exceeds GF(2^8) capacity", k+nLocal+m)
	}

	p.K = k
	p.M = m
	p.N = k + nLocal + m
	p.Locals = locals
	p.matrix = buildMatrix(k, locals, m)

	p.codeErased = make([]int, 0, nLocal+m+1)
	for i := k; i < p.N; i++ {
		p.codeErased = append(p.codeErased, i)
	}
	p.codeErased = append(p.codeErased, sentinel)

	p.inited = true
	return nil
}

// Destroy resets the instance so it can be initialized again.
func (p *Param) Destroy() {
	p.K = 0
	p.M = 0
	p.N = 0
	p.Locals = nil
	p.matrix = nil
	p.codeErased = nil
	p.inited = false
}

// buildMatrix produces the (L+m) x k encoding matrix. The first L rows
// are the local rows: 1 across the group's columns, 0 elsewhere. The
// remaining m rows are the global Vandermonde block with row r, column c
// holding power(r*c); row 0 of the block is all ones.
func buildMatrix(k int, locals []Local, m int) []int {
	nLocal := len(locals)
	mat := make([]int, (nLocal+m)*k)

	for i, loc := range locals {
		row := mat[i*k : (i+1)*k]
		for c := loc.Start; c < loc.Start+loc.Len; c++ {
			row[c] = 1
		}
	}

	for r := 0; r < m; r++ {
		row := mat[(nLocal+r)*k : (nLocal+r+1)*k]
		for c := 0; c < k; c++ {
			row[c] = GfPower(r * c)
		}
	}
	return mat
}

// MakeMatrix returns a copy of the fully materialized encoding matrix,
// (L+m) rows by k columns, row-major.
func (p *Param) MakeMatrix() []int {
	out := make([]int, len(p.matrix))
	copy(out, p.matrix)
	return out
}

// matrixRow returns row i of the encoding matrix, i in [0, L+M).
func (p *Param) matrixRow(i int) []int {
	return p.matrix[i*p.K : (i+1)*p.K]
}

// chunkRow returns the encoding-matrix row that generates parity chunk
// idx, idx in [K, N).
func (p *Param) chunkRow(idx int) []int {
	return p.matrixRow(idx - p.K)
}

// parseErased expands a sentinel-terminated erased vector into per-chunk
// flags. Indices out of [0, N) or a vector longer than the fixed bound
// are rejected.
func (p *Param) parseErased(erased []int) ([]bool, error) {
	flags := make([]bool, p.N)
	for i, idx := range erased {
		if idx == sentinel {
			return flags, nil
		}
		if i >= maxVector {
			return nil, errors.Wrap(ErrUnrecoverable, "erased vector exceeds bound")
		}
		if idx < 0 || idx >= p.N {
			return nil, errors.Wrapf(ErrUnrecoverable, "erased index %d out of range", idx)
		}
		flags[idx] = true
	}
	return flags, nil
}

// CountErased returns how many erased indices fall in [0, n).
func CountErased(n int, erased []int) int {
	count := 0
	for _, idx := range erased {
		if idx == sentinel {
			break
		}
		if idx >= 0 && idx < n {
			count++
		}
	}
	return count
}

// localityErasures counts the erasures inside locality group i: its data
// columns plus its own local parity chunk. The local parity belongs to
// the group for repair purposes.
func (p *Param) localityErasures(i int, flags []bool) int {
	loc := p.Locals[i]
	count := 0
	for c := loc.Start; c < loc.Start+loc.Len; c++ {
		if flags[c] {
			count++
		}
	}
	if flags[p.K+i] {
		count++
	}
	return count
}

// Encode fills chunks [k, n) of buf with parity computed from the first
// k data chunks. Parity rows are independent, so they are regenerated in
// index order through the same path decode uses for erased parities.
func (p *Param) Encode(buf *Buf) error {
	if !p.inited || !buf.inited {
		return errors.Wrap(ErrUnrecoverable, "encode on uninitialized instance")
	}
	if buf.N != p.N {
		return errors.Wrapf(ErrUnrecoverable, "buf has %d chunks, param wants %d", buf.N, p.N)
	}
	p.regenerateParity(buf, p.codeErased)
	return nil
}

// regenerateParity recomputes every parity chunk listed in erased from
// the data chunks. Local rows degenerate into XOR inside the kernel.
func (p *Param) regenerateParity(buf *Buf, erased []int) {
	for _, idx := range erased {
		if idx == sentinel {
			break
		}
		if idx < p.K {
			continue
		}
		matrixDotprod(p.K, p.chunkRow(idx), nil, idx, buf.Data, buf.Code, int(buf.ChunkSize))
	}
}

// GetSource selects the surviving chunks needed to reconstruct the
// erased ones, preferring local-only repair per group. The result is
// sorted ascending and sentinel-terminated.
//
// A group with at most one erasure among its data chunks and local
// parity repairs locally from its own survivors. A group with more
// erasures falls back to the global solve, which consumes every
// surviving data chunk, the fallback groups' surviving local parities,
// and one surviving global parity per erased data chunk in fallback
// groups. Regenerating an erased global parity also reads all data
// columns.
func (p *Param) GetSource(erased []int) ([]int, error) {
	flags, err := p.parseErased(erased)
	if err != nil {
		return nil, err
	}

	src := make([]bool, p.N)
	var fallback []int
	needAllData := false

	for i, loc := range p.Locals {
		switch e := p.localityErasures(i, flags); {
		case e == 0:
			// intact group, contributes nothing by itself
		case e == 1:
			for c := loc.Start; c < loc.Start+loc.Len; c++ {
				if !flags[c] {
					src[c] = true
				}
			}
			if !flags[p.K+i] {
				src[p.K+i] = true
			}
		default:
			fallback = append(fallback, i)
		}
	}

	// Erased global parities are re-encoded from the full data row.
	for idx := p.K + p.NLocal(); idx < p.N; idx++ {
		if flags[idx] {
			needAllData = true
		}
	}

	if len(fallback) > 0 {
		needAllData = true

		unknowns := 0
		for _, i := range fallback {
			loc := p.Locals[i]
			for c := loc.Start; c < loc.Start+loc.Len; c++ {
				if flags[c] {
					unknowns++
				}
			}
			if !flags[p.K+i] {
				src[p.K+i] = true
			}
		}

		taken := 0
		for idx := p.K + p.NLocal(); idx < p.N && taken < unknowns; idx++ {
			if !flags[idx] {
				src[idx] = true
				taken++
			}
		}
		if taken < unknowns {
			return nil, errors.Wrapf(ErrUnrecoverable,
				"%d erased data chunks in fallback groups, %d global parities left", unknowns, taken)
		}
	}

	if needAllData {
		for c := 0; c < p.K; c++ {
			if !flags[c] {
				src[c] = true
			}
		}
	}

	source := make([]int, 0, p.N+1)
	for idx, used := range src {
		if used {
			source = append(source, idx)
		}
	}
	source = append(source, sentinel)
	return source, nil
}

// Decode recovers every erased chunk of buf in place. The erasure
// pattern must be correctable per the source-selection rule.
func (p *Param) Decode(buf *Buf, erased []int) error {
	if CountErased(p.N, erased) == 0 {
		_, err := p.parseErased(erased)
		return err
	}
	var dec decoder
	if err := dec.init(p, buf, erased); err != nil {
		return err
	}
	defer dec.destroy()
	return dec.decode()
}
