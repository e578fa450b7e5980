// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/pdiddy/moc-converter/pkg/types"
)

// ErrInvalidOrder reports a coverage map key that is not a non-negative
// base-10 integer, or two keys naming the same order.
var ErrInvalidOrder = errors.New("invalid order")

// BuildDocument validates the keys of m and returns its records sorted by
// numeric order. Keys are compared as numbers, so "10" sorts after "9".
// Cells keep the decoder's ordering; a nil cell list becomes empty.
func BuildDocument(m types.CoverageMap) (types.Document, error) {
	doc := make(types.Document, 0, len(m))
	seen := make(map[int]string, len(m))
	for key, cells := range m {
		order, err := parseOrder(key)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[order]; dup {
			return nil, fmt.Errorf("%w: keys %q and %q both name order %d", ErrInvalidOrder, prev, key, order)
		}
		seen[order] = key
		if cells == nil {
			cells = []uint64{}
		}
		doc = append(doc, types.Record{Order: order, Cells: cells})
	}
	slices.SortFunc(doc, func(a, b types.Record) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return doc, nil
}

func parseOrder(key string) (int, error) {
	order, err := strconv.Atoi(key)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidOrder, key)
	}
	if order < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrInvalidOrder, order)
	}
	return order, nil
}
