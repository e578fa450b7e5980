// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package moc decodes HEALPix Multi-Order Coverage maps stored as FITS
// binary tables (IVOA MOC 1.x NUNIQ and 2.0 RANGE layouts) into normalized
// per-order cell lists.
package moc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"

	"github.com/pdiddy/moc-converter/pkg/types"
)

// ErrMalformed reports a file that parses as FITS but is not a valid
// spatial MOC.
var ErrMalformed = errors.New("malformed MOC")

const (
	orderingNUNIQ = "NUNIQ"
	orderingRange = "RANGE"
)

// Coverage is a normalized spatial MOC: merged ranges at MaxDepth plus the
// resolution the map was built at.
type Coverage struct {
	// Depth is the finest order the map resolves (MOCORDER).
	Depth int

	// Ranges are sorted, disjoint, non-adjacent, and aligned to Depth.
	Ranges []Range
}

// CoverageMap returns the per-order cells of c keyed by the decimal order.
// The key for Depth is always present, with an empty list when no cell
// sits at that order, so the resolution survives serialization.
func (c *Coverage) CoverageMap() types.CoverageMap {
	cells := Cells(c.Ranges, c.Depth)
	m := make(types.CoverageMap, len(cells)+1)
	for order, ipix := range cells {
		m[strconv.Itoa(order)] = ipix
	}
	if _, ok := cells[c.Depth]; !ok {
		m[strconv.Itoa(c.Depth)] = []uint64{}
	}
	return m
}

// FITSDecoder decodes MOC FITS files from disk.
type FITSDecoder struct{}

// Decode reads the MOC at path and returns its cells per order.
func (FITSDecoder) Decode(path string) (types.CoverageMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening MOC %s: %w", path, err)
	}
	defer f.Close()

	cov, err := ReadFITS(f)
	if err != nil {
		return nil, fmt.Errorf("reading MOC %s: %w", path, err)
	}
	return cov.CoverageMap(), nil
}

// ReadFITS parses a MOC from r. It reads the first binary table HDU and
// honors the ORDERING, MOCDIM, and spatial order (MOCORD_S, MOCORDER)
// header keys.
func ReadFITS(r io.Reader) (*Coverage, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing FITS: %v", ErrMalformed, err)
	}
	defer f.Close()

	var tbl *fitsio.Table
	for _, hdu := range f.HDUs() {
		if t, ok := hdu.(*fitsio.Table); ok && hdu.Type() == fitsio.BINARY_TBL {
			tbl = t
			break
		}
	}
	if tbl == nil {
		return nil, fmt.Errorf("%w: no binary table HDU", ErrMalformed)
	}

	hdr := tbl.Header()
	if dim := headerString(hdr, "MOCDIM", "SPACE"); dim != "SPACE" {
		return nil, fmt.Errorf("%w: unsupported MOCDIM %q", ErrMalformed, dim)
	}
	ordering := headerString(hdr, "ORDERING", orderingNUNIQ)

	depth, hasDepth, err := headerDepth(hdr)
	if err != nil {
		return nil, err
	}

	values, err := readColumn(tbl)
	if err != nil {
		return nil, err
	}

	switch ordering {
	case orderingNUNIQ:
		return fromNUNIQ(values, depth, hasDepth)
	case orderingRange:
		if !hasDepth {
			depth = MaxDepth
		}
		return fromRanges(values, depth)
	default:
		return nil, fmt.Errorf("%w: unsupported ORDERING %q", ErrMalformed, ordering)
	}
}

func fromNUNIQ(values []uint64, depth int, hasDepth bool) (*Coverage, error) {
	ranges := make([]Range, 0, len(values))
	maxSeen := 0
	for _, u := range values {
		d, ipix, err := FromUniq(u)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if d > maxSeen {
			maxSeen = d
		}
		ranges = append(ranges, CellRange(d, ipix))
	}
	if !hasDepth || maxSeen > depth {
		depth = maxSeen
	}
	return &Coverage{Depth: depth, Ranges: Degrade(ranges, depth)}, nil
}

func fromRanges(values []uint64, depth int) (*Coverage, error) {
	if len(values)%2 != 0 {
		return nil, fmt.Errorf("%w: RANGE column has odd length %d", ErrMalformed, len(values))
	}
	limit := NPix(MaxDepth)
	ranges := make([]Range, 0, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		r := Range{Start: values[i], End: values[i+1]}
		if r.Start >= r.End || r.End > limit {
			return nil, fmt.Errorf("%w: invalid range [%d, %d)", ErrMalformed, r.Start, r.End)
		}
		ranges = append(ranges, r)
	}
	return &Coverage{Depth: depth, Ranges: Degrade(ranges, depth)}, nil
}

// readColumn returns the values of the table's single integer column.
func readColumn(tbl *fitsio.Table) ([]uint64, error) {
	cols := tbl.Cols()
	if len(cols) != 1 {
		return nil, fmt.Errorf("%w: expected 1 column, found %d", ErrMalformed, len(cols))
	}
	code, err := columnType(cols[0].Format)
	if err != nil {
		return nil, err
	}

	n := tbl.NumRows()
	rows, err := tbl.Read(0, n)
	if err != nil {
		return nil, fmt.Errorf("%w: reading rows: %v", ErrMalformed, err)
	}
	defer rows.Close()

	values := make([]uint64, 0, n)
	for rows.Next() {
		var v int64
		switch code {
		case 'K':
			err = rows.Scan(&v)
		case 'J':
			var x int32
			err = rows.Scan(&x)
			v = int64(x)
		case 'I':
			var x int16
			err = rows.Scan(&x)
			v = int64(x)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: scanning row: %v", ErrMalformed, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: negative cell value %d", ErrMalformed, v)
		}
		values = append(values, uint64(v))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading rows: %v", ErrMalformed, err)
	}
	return values, nil
}

// columnType extracts the TFORM type code, accepting only scalar integers.
func columnType(format string) (byte, error) {
	f := strings.ToUpper(strings.TrimSpace(format))
	digits := strings.TrimRight(f, "IJK")
	code := strings.TrimPrefix(f, digits)
	if len(code) != 1 || (digits != "" && digits != "1") {
		return 0, fmt.Errorf("%w: unsupported column format %q", ErrMalformed, format)
	}
	return code[0], nil
}

func headerString(hdr *fitsio.Header, key, def string) string {
	card := hdr.Get(key)
	if card == nil {
		return def
	}
	s, ok := card.Value.(string)
	if !ok {
		return def
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return def
	}
	return s
}

// headerDepth reads the spatial order: MOCORD_S (MOC 2.0), then MOCORDER,
// then the older MOC_ORDER spelling.
func headerDepth(hdr *fitsio.Header) (int, bool, error) {
	for _, key := range []string{"MOCORD_S", "MOCORDER", "MOC_ORDER"} {
		card := hdr.Get(key)
		if card == nil {
			continue
		}
		var depth int
		switch v := card.Value.(type) {
		case int:
			depth = v
		case int64:
			depth = int(v)
		case float64:
			depth = int(v)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return 0, false, fmt.Errorf("%w: %s %q is not an integer", ErrMalformed, key, v)
			}
			depth = n
		default:
			return 0, false, fmt.Errorf("%w: %s has type %T", ErrMalformed, key, v)
		}
		if depth < 0 || depth > MaxDepth {
			return 0, false, fmt.Errorf("%w: %s %d outside [0, %d]", ErrMalformed, key, depth, MaxDepth)
		}
		return depth, true, nil
	}
	return 0, false, nil
}
