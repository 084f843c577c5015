package lrc

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestRoundTripProperty drives random parameters, data and correctable
// erasure patterns through encode-erase-decode and requires bit-exact
// recovery of all n chunks.
func TestRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nGroups := rapid.IntRange(1, 4).Draw(t, "groups")
		localKs := make([]int, nGroups)
		for i := range localKs {
			localKs[i] = rapid.IntRange(1, 5).Draw(t, fmt.Sprintf("k%d", i))
		}
		m := rapid.IntRange(1, 4).Draw(t, "m")
		chunkSize := rapid.Int64Range(1, 48).Draw(t, "chunkSize")

		var l Lrc
		require.NoError(t, l.Init(localKs, m, chunkSize))
		defer l.Destroy()

		for i := 0; i < l.K; i++ {
			data := rapid.SliceOfN(rapid.Byte(), int(chunkSize), int(chunkSize)).
				Draw(t, fmt.Sprintf("data%d", i))
			copy(l.Buf.Data[i], data)
		}
		require.NoError(t, l.Encode())
		want := snapshot(&l.Buf)

		L := l.Param.NLocal()
		var erased []int

		if rapid.Bool().Draw(t, "fallback") {
			// One group loses between one and m data chunks, optionally
			// with its local parity, which usually exceeds what it can
			// repair locally; the global parities all survive, so up to
			// m data chunks of the group are recoverable.
			g := rapid.IntRange(0, nGroups-1).Draw(t, "fallbackGroup")
			loc := l.Param.Locals[g]
			d := rapid.IntRange(1, min(loc.Len, m)).Draw(t, "erasedData")
			for c := loc.Start; c < loc.Start+d; c++ {
				erased = append(erased, c)
			}
			if rapid.Bool().Draw(t, "alsoLocalParity") {
				erased = append(erased, l.K+g)
			}
			for i, other := range l.Param.Locals {
				if i == g {
					continue
				}
				switch rapid.IntRange(0, 2).Draw(t, fmt.Sprintf("other%d", i)) {
				case 1:
					erased = append(erased, other.Start)
				case 2:
					erased = append(erased, l.K+i)
				}
			}
		} else {
			// At most one erasure per group, plus any subset of the
			// global parities.
			for i, loc := range l.Param.Locals {
				switch rapid.IntRange(0, 2).Draw(t, fmt.Sprintf("group%d", i)) {
				case 1:
					erased = append(erased, loc.Start+rapid.IntRange(0, loc.Len-1).
						Draw(t, fmt.Sprintf("pick%d", i)))
				case 2:
					erased = append(erased, l.K+i)
				}
			}
			for j := 0; j < m; j++ {
				if rapid.Bool().Draw(t, fmt.Sprintf("global%d", j)) {
					erased = append(erased, l.K+L+j)
				}
			}
		}
		erased = append(erased, sentinel)

		zeroErased(&l.Buf, erased)
		require.NoError(t, l.Decode(erased))
		for i := 0; i < l.N; i++ {
			require.Equal(t, want[i], l.Buf.Data[i], "chunk %d", i)
		}
	})
}

// TestSourceSubsetProperty checks that whatever source set is selected,
// it never includes an erased chunk and is always in bounds.
func TestSourceSubsetProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nGroups := rapid.IntRange(1, 3).Draw(t, "groups")
		localKs := make([]int, nGroups)
		for i := range localKs {
			localKs[i] = rapid.IntRange(1, 4).Draw(t, fmt.Sprintf("k%d", i))
		}
		m := rapid.IntRange(1, 3).Draw(t, "m")

		var p Param
		require.NoError(t, p.Init(localKs, m))
		defer p.Destroy()

		count := rapid.IntRange(0, p.N).Draw(t, "count")
		flags := make([]bool, p.N)
		var erased []int
		for i := 0; i < count; i++ {
			idx := rapid.IntRange(0, p.N-1).Draw(t, fmt.Sprintf("e%d", i))
			if !flags[idx] {
				flags[idx] = true
				erased = append(erased, idx)
			}
		}
		erased = append(erased, sentinel)

		source, err := p.GetSource(erased)
		if err != nil {
			require.Equal(t, StatusUnrecoverable, StatusCode(err))
			return
		}
		for _, idx := range source {
			if idx == sentinel {
				break
			}
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, p.N)
			require.False(t, flags[idx], "source %d is erased", idx)
		}
	})
}
