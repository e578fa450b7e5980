// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package moc

import (
	"fmt"
	"math/bits"
	"slices"
)

// MaxDepth is the deepest HEALPix order a MOC can carry. Ranges are kept at
// this depth internally.
const MaxDepth = 29

// Range is a half-open interval [Start, End) of NESTED indices at MaxDepth.
type Range struct {
	Start uint64
	End   uint64
}

// NPix returns the number of cells at depth.
func NPix(depth int) uint64 {
	return 12 << (2 * uint(depth))
}

// Uniq encodes a cell in the NUNIQ scheme: 4*4^depth + ipix.
func Uniq(depth int, ipix uint64) uint64 {
	return 4<<(2*uint(depth)) + ipix
}

// FromUniq decodes a NUNIQ value into its depth and NESTED index.
func FromUniq(u uint64) (depth int, ipix uint64, err error) {
	if u < 4 {
		return 0, 0, fmt.Errorf("uniq %d below smallest valid value 4", u)
	}
	depth = (bits.Len64(u) - 3) / 2
	if depth > MaxDepth {
		return 0, 0, fmt.Errorf("uniq %d has depth %d, max is %d", u, depth, MaxDepth)
	}
	return depth, u - 4<<(2*uint(depth)), nil
}

// CellRange returns the MaxDepth range covered by cell ipix at depth.
func CellRange(depth int, ipix uint64) Range {
	shift := 2 * uint(MaxDepth-depth)
	return Range{Start: ipix << shift, End: (ipix + 1) << shift}
}

// Merge sorts ranges and joins the ones that overlap or touch. The input
// slice is reordered in place; empty ranges are dropped.
func Merge(ranges []Range) []Range {
	slices.SortFunc(ranges, func(a, b Range) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})

	out := ranges[:0]
	for _, r := range ranges {
		if r.Start >= r.End {
			continue
		}
		if n := len(out); n > 0 && r.Start <= out[n-1].End {
			if r.End > out[n-1].End {
				out[n-1].End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// Degrade widens every range to cell boundaries at depth and re-merges.
// Coverage only grows: partially covered cells become fully covered.
func Degrade(ranges []Range, depth int) []Range {
	if depth >= MaxDepth {
		return Merge(ranges)
	}
	shift := 2 * uint(MaxDepth-depth)
	mask := uint64(1)<<shift - 1
	out := make([]Range, len(ranges))
	for i, r := range ranges {
		out[i] = Range{
			Start: r.Start &^ mask,
			End:   (r.End + mask) &^ mask,
		}
	}
	return Merge(out)
}

// Cells decomposes merged ranges into the smallest set of cells no deeper
// than depth. The result is keyed by order; cells of each order ascend.
// Ranges must be aligned to depth (see Degrade).
func Cells(ranges []Range, depth int) map[int][]uint64 {
	out := make(map[int][]uint64)
	shift := 2 * uint(MaxDepth-depth)
	for _, r := range ranges {
		lo, hi := r.Start>>shift, r.End>>shift
		for lo < hi {
			// t is the number of levels above depth the emitted cell sits.
			t := depth
			for t > 0 {
				size := uint64(1) << (2 * uint(t))
				if lo&(size-1) == 0 && lo+size <= hi {
					break
				}
				t--
			}
			order := depth - t
			out[order] = append(out[order], lo>>(2*uint(t)))
			lo += uint64(1) << (2 * uint(t))
		}
	}
	return out
}
