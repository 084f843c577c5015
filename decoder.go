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

// decoder is the per-invocation decode state: a borrowed shadow of the
// caller's Buf, the erasure and source vectors, and the reduced decoding
// matrix. It lives for exactly one erasure pattern.
type decoder struct {
	param *Param
	buf   Buf // shadow, never owns the backing region

	erased []int // sentinel-terminated
	source []int // sentinel-terminated

	// decodeMatrix is the reduced matrix in first-k-rows-identity form:
	// k identity rows for the data chunks followed by the encoding rows
	// of the parity chunks chosen into the source set. parityRows maps
	// each appended row back to its parity chunk index.
	decodeMatrix []int
	parityRows   []int

	inited bool
}

// init shadows the caller's buffers, computes the source set and
// assembles the reduced decoding matrix. The instance is left destroyed
// on any error.
func (d *decoder) init(param *Param, buf *Buf, erased []int) error {
	if d.inited {
		return errors.WithStack(ErrInitTwice)
	}
	if !param.inited || !buf.inited {
		return errors.Wrap(ErrUnrecoverable, "decode on uninitialized instance")
	}
	if buf.N != param.N {
		return errors.Wrapf(ErrUnrecoverable, "buf has %d chunks, param wants %d", buf.N, param.N)
	}

	if err := d.buf.Shadow(buf); err != nil {
		return err
	}

	source, err := param.GetSource(erased)
	if err != nil {
		d.buf.Destroy()
		return err
	}

	d.param = param
	d.source = source
	d.erased = make([]int, 0, len(erased)+1)
	for _, idx := range erased {
		d.erased = append(d.erased, idx)
		if idx == sentinel {
			break
		}
	}
	if len(d.erased) == 0 || d.erased[len(d.erased)-1] != sentinel {
		d.erased = append(d.erased, sentinel)
	}

	k := param.K
	d.parityRows = nil
	for _, idx := range source {
		if idx == sentinel {
			break
		}
		if idx >= k {
			d.parityRows = append(d.parityRows, idx)
		}
	}

	d.decodeMatrix = make([]int, (k+len(d.parityRows))*k)
	for i := 0; i < k; i++ {
		d.decodeMatrix[i*k+i] = 1
	}
	for r, idx := range d.parityRows {
		copy(d.decodeMatrix[(k+r)*k:(k+r+1)*k], param.chunkRow(idx))
	}

	d.inited = true

	if Debug {
		debugSources(d.source)
		debugMatrix("decode matrix", d.decodeMatrix, k+len(d.parityRows), k)
	}
	return nil
}

// decode recovers the erased chunks in place: locally repairable groups
// first, then one linear solve for the groups that fell back to global
// decoding, and finally re-encoding of every erased parity chunk.
func (d *decoder) decode() error {
	if !d.inited {
		return errors.Wrap(ErrUnrecoverable, "decode on uninitialized decoder")
	}

	p := d.param
	flags, err := p.parseErased(d.erased)
	if err != nil {
		return err
	}

	size := int(d.buf.ChunkSize)

	// Single-erasure groups: the lone missing data chunk is the XOR of
	// the group's survivors. Only chunks of the group are touched.
	var unknown []int
	for i, loc := range p.Locals {
		e := p.localityErasures(i, flags)
		if e == 1 {
			d.repairLocal(loc, p.K+i, flags, size)
			continue
		}
		if e > 1 {
			for c := loc.Start; c < loc.Start+loc.Len; c++ {
				if flags[c] {
					unknown = append(unknown, c)
				}
			}
		}
	}

	// Global fallback: solve the reduced system for the remaining
	// unknown data columns using the parity rows of the source set.
	if len(unknown) > 0 {
		if err := d.solveGlobal(unknown, size); err != nil {
			return err
		}
	}

	// Every erased parity chunk is re-encoded from the now complete
	// data chunks; a local row only reads its own group.
	for _, idx := range d.erased {
		if idx == sentinel {
			break
		}
		if idx >= p.K {
			matrixDotprod(p.K, p.chunkRow(idx), nil, idx, d.buf.Data, d.buf.Code, size)
		}
	}

	if Debug {
		debugBufLine(&d.buf, d.buf.N)
	}
	return nil
}

// repairLocal rebuilds the single missing data chunk of one locality
// group by XORing the surviving group members. A missing local parity is
// left for the re-encode pass.
func (d *decoder) repairLocal(loc Local, parityIdx int, flags []bool, size int) {
	target := -1
	survivors := make([][]byte, 0, loc.Len+1)
	for c := loc.Start; c < loc.Start+loc.Len; c++ {
		if flags[c] {
			target = c
		} else {
			survivors = append(survivors, d.buf.Data[c][:size])
		}
	}
	if target < 0 {
		return // the erasure is the local parity itself
	}
	survivors = append(survivors, d.buf.Data[parityIdx][:size])
	xorsimd.Encode(d.buf.Data[target][:size], survivors)
}

// solveGlobal eliminates the reduced system for the unknown data
// columns. Candidate equations come from the parity rows of the decode
// matrix; rows that do not touch any unknown column are skipped. The
// right-hand side of each equation is the parity chunk minus the
// contributions of the known data columns. By this point every data
// chunk outside the unknown set is populated, including the ones the
// local pass just repaired.
func (d *decoder) solveGlobal(unknown []int, size int) error {
	p := d.param
	k := p.K
	u := len(unknown)

	isUnknown := make([]bool, k)
	for _, c := range unknown {
		isUnknown[c] = true
	}

	var a [][]int
	var rhs [][]byte
	for r, idx := range d.parityRows {
		row := d.decodeMatrix[(k+r)*k : (k+r+1)*k]

		coefs := make([]int, u)
		touches := false
		for j, c := range unknown {
			coefs[j] = row[c]
			if row[c] != 0 {
				touches = true
			}
		}
		if !touches {
			continue
		}

		b := make([]byte, size)
		copy(b, d.buf.Data[idx][:size])
		for c := 0; c < k; c++ {
			if row[c] == 0 || isUnknown[c] {
				continue
			}
			gfMulSliceXor(row[c], d.buf.Data[c][:size], b)
		}
		a = append(a, coefs)
		rhs = append(rhs, b)
	}

	if err := solveLinear(a, rhs, u); err != nil {
		return err
	}
	for j, c := range unknown {
		copy(d.buf.Data[c][:size], rhs[j])
	}
	return nil
}

// destroy releases the reduced matrix and the shadow. The shadowed
// buffer itself is never freed.
func (d *decoder) destroy() {
	d.decodeMatrix = nil
	d.parityRows = nil
	d.erased = nil
	d.source = nil
	d.param = nil
	d.buf.Destroy()
	d.inited = false
}
