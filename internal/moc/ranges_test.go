// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package moc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromUniq(t *testing.T) {
	tests := []struct {
		name      string
		uniq      uint64
		wantDepth int
		wantIpix  uint64
		wantErr   bool
	}{
		{name: "first base cell", uniq: 4, wantDepth: 0, wantIpix: 0},
		{name: "last base cell", uniq: 15, wantDepth: 0, wantIpix: 11},
		{name: "first order 1 cell", uniq: 16, wantDepth: 1, wantIpix: 0},
		{name: "last order 1 cell", uniq: 63, wantDepth: 1, wantIpix: 47},
		{name: "order 29", uniq: Uniq(29, 12345), wantDepth: 29, wantIpix: 12345},
		{name: "zero is invalid", uniq: 0, wantErr: true},
		{name: "three is invalid", uniq: 3, wantErr: true},
		{name: "beyond order 29", uniq: Uniq(30, 0), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			depth, ipix, err := FromUniq(tt.uniq)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDepth, depth)
			assert.Equal(t, tt.wantIpix, ipix)
		})
	}
}

func TestUniqRoundTrip(t *testing.T) {
	for depth := 0; depth <= MaxDepth; depth++ {
		for _, ipix := range []uint64{0, 1, NPix(depth) - 1} {
			d, p, err := FromUniq(Uniq(depth, ipix))
			require.NoError(t, err)
			assert.Equal(t, depth, d)
			assert.Equal(t, ipix, p)
		}
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		in   []Range
		want []Range
	}{
		{
			name: "empty",
			in:   nil,
			want: []Range{},
		},
		{
			name: "overlapping and unsorted",
			in:   []Range{{10, 20}, {0, 5}, {15, 30}},
			want: []Range{{0, 5}, {10, 30}},
		},
		{
			name: "adjacent ranges join",
			in:   []Range{{0, 5}, {5, 9}},
			want: []Range{{0, 9}},
		},
		{
			name: "contained range absorbed",
			in:   []Range{{0, 100}, {10, 20}},
			want: []Range{{0, 100}},
		},
		{
			name: "empty ranges dropped",
			in:   []Range{{7, 7}, {1, 2}},
			want: []Range{{1, 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.in)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDegrade(t *testing.T) {
	// One order-29 cell inside base cell 3 widens to the whole base cell.
	r := CellRange(29, CellRange(0, 3).Start+42)
	got := Degrade([]Range{r}, 0)
	assert.Equal(t, []Range{CellRange(0, 3)}, got)
}

func TestCells(t *testing.T) {
	tests := []struct {
		name   string
		ranges []Range
		depth  int
		want   map[int][]uint64
	}{
		{
			name:   "four siblings collapse to parent",
			ranges: Merge(cellRanges(1, 0, 1, 2, 3)),
			depth:  1,
			want:   map[int][]uint64{0: {0}},
		},
		{
			name:   "partial parent stays split",
			ranges: Merge(cellRanges(1, 0, 1, 2)),
			depth:  1,
			want:   map[int][]uint64{1: {0, 1, 2}},
		},
		{
			name:   "mixed orders",
			ranges: Merge(append(cellRanges(0, 1, 2), cellRanges(1, 17)...)),
			depth:  1,
			want:   map[int][]uint64{0: {1, 2}, 1: {17}},
		},
		{
			name:   "unaligned start",
			ranges: Merge(cellRanges(2, 3, 4, 5, 6, 7)),
			depth:  2,
			want:   map[int][]uint64{1: {1}, 2: {3}},
		},
		{
			name:   "whole sky",
			ranges: []Range{{Start: 0, End: NPix(MaxDepth)}},
			depth:  3,
			want:   map[int][]uint64{0: {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Cells(tt.ranges, tt.depth))
		})
	}
}

func TestCoverageMap_KeepsDepthKey(t *testing.T) {
	cov := &Coverage{Depth: 3, Ranges: Merge(cellRanges(0, 4))}
	m := cov.CoverageMap()

	require.Len(t, m, 2)
	assert.Equal(t, []uint64{4}, m["0"])
	assert.Equal(t, []uint64{}, m["3"])
}

func cellRanges(depth int, cells ...uint64) []Range {
	out := make([]Range, len(cells))
	for i, c := range cells {
		out[i] = CellRange(depth, c)
	}
	return out
}
