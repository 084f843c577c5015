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

// ErrOutOfMemory is the out-of-memory error kind, mapped to
// StatusOutOfMemory. An allocation failure in Go panics in the runtime,
// so no function of this package returns it.
var ErrOutOfMemory = errors.New("lrc: out of memory")

// ErrUnrecoverable is returned by decode when the erasure pattern exceeds
// the correction capacity of the code.
var ErrUnrecoverable = errors.New("lrc: unrecoverable erasure pattern")

// ErrInitTwice is returned when Init is called on an instance that is
// already initialized.
var ErrInitTwice = errors.New("lrc: init called twice")

// ErrInvalidM is returned when the requested parameters are invalid:
// m < 1, no locality groups, a locality group of size < 1, or
// k + L + m > 256. Buf.Init also returns it for a non-positive chunk
// size or an uninitialized Param.
var ErrInvalidM = errors.New("lrc: invalid m")

// Status codes matching the C ABI of the original library.
const (
	StatusOK            = 0
	StatusOutOfMemory   = -1
	StatusUnrecoverable = -2
	StatusInitTwice     = -3
	StatusInvalidM      = -4
)

// StatusCode maps an error returned by this package to its integer status
// code. Wrapped errors are unwrapped to their cause first. Errors that do
// not originate here count as unrecoverable.
func StatusCode(err error) int {
	switch errors.Cause(err) {
	case nil:
		return StatusOK
	case ErrOutOfMemory:
		return StatusOutOfMemory
	case ErrInitTwice:
		return StatusInitTwice
	case ErrInvalidM:
		return StatusInvalidM
	default:
		return StatusUnrecoverable
	}
}
