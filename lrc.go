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

// Package lrc implements Locally Repairable Codes over GF(2^8) on top of
// Reed-Solomon erasure coding. k data chunks are partitioned into L
// locality groups; encoding produces one local parity per group (the XOR
// of the group) and m global Reed-Solomon parities, k+L+m chunks total.
// A single erasure inside a group repairs from the group's survivors
// alone; wider failure patterns fall back to a global decode.
package lrc

import (
	"github.com/pkg/errors"
)

// Lrc bundles a Param with an owning Buf: one code instance with its own
// chunk memory. Fill Buf.Data[0:K] with user data, Encode, and the
// parity chunks appear in the remaining slots.
type Lrc struct {
	K int
	M int
	N int

	Param Param
	Buf   Buf

	inited bool
}

// Init builds the code for the given locality partition, global parity
// count and chunk size, and allocates the chunk buffer. On error the
// instance is left destroyed.
func (l *Lrc) Init(localKs []int, m int, chunkSize int64) error {
	if l.inited {
		return errors.WithStack(ErrInitTwice)
	}

	if err := l.Param.Init(localKs, m); err != nil {
		return err
	}
	if err := l.Buf.Init(&l.Param, chunkSize); err != nil {
		l.Param.Destroy()
		return err
	}

	l.K = l.Param.K
	l.M = l.Param.M
	l.N = l.Param.N
	l.inited = true
	return nil
}

// Destroy releases the parameter state and the chunk buffer.
func (l *Lrc) Destroy() {
	l.Param.Destroy()
	l.Buf.Destroy()
	l.K = 0
	l.M = 0
	l.N = 0
	l.inited = false
}

// Encode computes the L local parities and m global parities from the
// data chunks in Buf.Data[0:K].
func (l *Lrc) Encode() error {
	if !l.inited {
		return errors.Wrap(ErrUnrecoverable, "encode on uninitialized lrc")
	}
	return l.Param.Encode(&l.Buf)
}

// Decode recovers the chunks listed in erased (sentinel-terminated, -1)
// in place from the surviving chunks.
func (l *Lrc) Decode(erased []int) error {
	if !l.inited {
		return errors.Wrap(ErrUnrecoverable, "decode on uninitialized lrc")
	}
	return l.Param.Decode(&l.Buf, erased)
}

// GetSource computes the source set for an erasure pattern without
// decoding.
func (l *Lrc) GetSource(erased []int) ([]int, error) {
	return l.Param.GetSource(erased)
}
