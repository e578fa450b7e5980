// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "math"

// CoverageMap is the decoded form of a MOC file: order to cell indices.
// Keys are the order as text, the way the decoder emits them; they are
// validated and sorted numerically when the map is turned into a Document.
type CoverageMap map[string][]uint64

// Record holds the cells of one HEALPix order in the output document.
type Record struct {
	// Order is the HEALPix depth (0 = 12 base cells).
	Order int `json:"order" yaml:"order"`

	// Cells are NESTED pixel indices at Order, in decoder order.
	Cells []uint64 `json:"cells" yaml:"cells"`
}

// Document is the converted coverage map: one Record per order, ascending.
type Document []Record

// Orders returns the orders present in the document, in document order.
func (d Document) Orders() []int {
	orders := make([]int, len(d))
	for i, r := range d {
		orders[i] = r.Order
	}
	return orders
}

// MaxOrder returns the deepest order in the document, or -1 when empty.
func (d Document) MaxOrder() int {
	max := -1
	for _, r := range d {
		if r.Order > max {
			max = r.Order
		}
	}
	return max
}

// CellCount returns the total number of cells across all orders.
func (d Document) CellCount() int {
	n := 0
	for _, r := range d {
		n += len(r.Cells)
	}
	return n
}

// SkyFraction returns the fraction of the sphere covered, assuming the
// cells are disjoint (which holds for normalized maps).
func (d Document) SkyFraction() float64 {
	var f float64
	for _, r := range d {
		f += float64(len(r.Cells)) / (12 * math.Pow(4, float64(r.Order)))
	}
	return f
}
