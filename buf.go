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
	"unsafe"

	"github.com/pkg/errors"
)

const bufAlign = 16

// align16 rounds size up to the next multiple of 16.
func align16(size int64) int64 {
	return (size + bufAlign - 1) / bufAlign * bufAlign
}

// Buf owns one contiguous 16-byte-aligned backing region partitioned into
// n equal aligned slots, and exposes a chunk view per slot. Data holds
// all n views in chunk-index order; Code aliases the parity tail
// (Data[k:]) so the matrix kernels can address parity chunks relative
// to k. A shadow Buf borrows another Buf's views and owns nothing.
type Buf struct {
	NData int // number of data chunks (k)
	NCode int // number of parity chunks (L + m)
	N     int // NData + NCode

	Data [][]byte // all chunk views, data then local then global parity
	Code [][]byte // alias of Data[NData:]

	ChunkSize        int64
	AlignedChunkSize int64

	arena  []byte
	owned  bool
	inited bool
}

// Init allocates the backing region for one chunk set of param.
// The region start and every slot are 16-byte aligned so SIMD kernels
// can load full lanes; the chunk views keep the logical chunk size.
func (b *Buf) Init(param *Param, chunkSize int64) error {
	if b.inited {
		return errors.WithStack(ErrInitTwice)
	}
	if !param.inited {
		return errors.Wrap(ErrInvalidM, "buf init before param init")
	}
	if chunkSize <= 0 {
		return errors.Wrap(ErrInvalidM, "chunk size must be positive")
	}

	n := param.N
	acs := align16(chunkSize)

	arena := make([]byte, int64(n)*acs+bufAlign-1)
	shift := int(-uintptr(unsafe.Pointer(&arena[0])) & (bufAlign - 1))

	b.NData = param.K
	b.NCode = param.NLocal() + param.M
	b.N = n
	b.ChunkSize = chunkSize
	b.AlignedChunkSize = acs
	b.arena = arena
	b.owned = true

	b.Data = make([][]byte, n)
	for i := 0; i < n; i++ {
		off := int64(shift) + int64(i)*acs
		b.Data[i] = arena[off : off+chunkSize : off+acs]
	}
	b.Code = b.Data[b.NData:]

	b.inited = true
	return nil
}

// Shadow points b at src's chunk views without taking ownership of the
// backing region. src must outlive the shadow; destroying a shadow never
// frees anything.
func (b *Buf) Shadow(src *Buf) error {
	if b.inited {
		return errors.WithStack(ErrInitTwice)
	}
	b.NData = src.NData
	b.NCode = src.NCode
	b.N = src.N
	b.ChunkSize = src.ChunkSize
	b.AlignedChunkSize = src.AlignedChunkSize
	b.Data = make([][]byte, len(src.Data))
	copy(b.Data, src.Data)
	b.Code = b.Data[b.NData:]
	b.owned = false
	b.inited = true
	return nil
}

// Destroy releases the backing region if owned and resets the instance
// so it can be initialized again.
func (b *Buf) Destroy() {
	if b.owned {
		b.arena = nil
	}
	b.Data = nil
	b.Code = nil
	b.NData = 0
	b.NCode = 0
	b.N = 0
	b.ChunkSize = 0
	b.AlignedChunkSize = 0
	b.owned = false
	b.inited = false
}
