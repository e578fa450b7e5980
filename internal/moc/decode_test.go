// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package moc

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/moc-converter/pkg/types"
)

// writeMOC writes a single-column binary table MOC to dir/name.
func writeMOC(t *testing.T, dir, name, format string, cards []fitsio.Card, values []int64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	w, err := os.Create(path)
	require.NoError(t, err)
	defer w.Close()

	f, err := fitsio.Create(w)
	require.NoError(t, err)

	phdu, err := fitsio.NewPrimaryHDU(nil)
	require.NoError(t, err)
	require.NoError(t, f.Write(phdu))

	colName := "UNIQ"
	for _, c := range cards {
		if c.Name == "ORDERING" && c.Value == "RANGE" {
			colName = "RANGE"
		}
	}
	tbl, err := fitsio.NewTable("MOC", []fitsio.Column{{Name: colName, Format: format}}, fitsio.BINARY_TBL)
	require.NoError(t, err)
	defer tbl.Close()
	require.NoError(t, tbl.Header().Append(cards...))

	for _, v := range values {
		switch format {
		case "1I":
			x := int16(v)
			require.NoError(t, tbl.Write(&x))
		case "1J":
			x := int32(v)
			require.NoError(t, tbl.Write(&x))
		default:
			x := v
			require.NoError(t, tbl.Write(&x))
		}
	}
	require.NoError(t, f.Write(tbl))
	require.NoError(t, f.Close())
	return path
}

func nuniqCards(depth int) []fitsio.Card {
	return []fitsio.Card{
		{Name: "PIXTYPE", Value: "HEALPIX"},
		{Name: "ORDERING", Value: "NUNIQ"},
		{Name: "COORDSYS", Value: "C"},
		{Name: "MOCORDER", Value: depth},
	}
}

func TestFITSDecoder_NUNIQ(t *testing.T) {
	dir := t.TempDir()
	// Order 0 cells 1 and 2, order 1 cell 17.
	values := []int64{int64(Uniq(0, 1)), int64(Uniq(0, 2)), int64(Uniq(1, 17))}

	for _, format := range []string{"1I", "1J", "1K"} {
		t.Run(format, func(t *testing.T) {
			path := writeMOC(t, dir, "nuniq-"+format+".fits", format, nuniqCards(1), values)

			got, err := FITSDecoder{}.Decode(path)
			require.NoError(t, err)
			assert.Equal(t, types.CoverageMap{
				"0": {1, 2},
				"1": {17},
			}, got)
		})
	}
}

func TestFITSDecoder_NormalizesSiblings(t *testing.T) {
	dir := t.TempDir()
	// The four children of base cell 3 collapse into the parent.
	values := []int64{
		int64(Uniq(1, 12)), int64(Uniq(1, 13)), int64(Uniq(1, 14)), int64(Uniq(1, 15)),
	}
	path := writeMOC(t, dir, "siblings.fits", "1K", nuniqCards(1), values)

	got, err := FITSDecoder{}.Decode(path)
	require.NoError(t, err)
	assert.Equal(t, types.CoverageMap{
		"0": {3},
		"1": {},
	}, got)
}

func TestFITSDecoder_DepthFromHeader(t *testing.T) {
	dir := t.TempDir()
	path := writeMOC(t, dir, "deep.fits", "1K", nuniqCards(8), []int64{int64(Uniq(0, 0))})

	got, err := FITSDecoder{}.Decode(path)
	require.NoError(t, err)
	assert.Equal(t, types.CoverageMap{
		"0": {0},
		"8": {},
	}, got)
}

func TestFITSDecoder_LegacyOrderKey(t *testing.T) {
	dir := t.TempDir()
	cards := []fitsio.Card{
		{Name: "ORDERING", Value: "NUNIQ"},
		{Name: "MOC_ORDER", Value: 5},
	}
	path := writeMOC(t, dir, "legacy.fits", "1J", cards, []int64{int64(Uniq(0, 7))})

	got, err := FITSDecoder{}.Decode(path)
	require.NoError(t, err)
	assert.Equal(t, types.CoverageMap{
		"0": {7},
		"5": {},
	}, got)
}

func TestFITSDecoder_Range(t *testing.T) {
	base5 := CellRange(0, 5)

	tests := []struct {
		name  string
		cards []fitsio.Card
	}{
		{
			name: "MOCORDER",
			cards: []fitsio.Card{
				{Name: "MOCDIM", Value: "SPACE"},
				{Name: "ORDERING", Value: "RANGE"},
				{Name: "MOCORDER", Value: 2},
			},
		},
		{
			name: "MOC 2.0 MOCORD_S",
			cards: []fitsio.Card{
				{Name: "MOCVERS", Value: "2.0"},
				{Name: "MOCDIM", Value: "SPACE"},
				{Name: "ORDERING", Value: "RANGE"},
				{Name: "MOCORD_S", Value: 2},
			},
		},
	}

	dir := t.TempDir()
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := "range-" + strconv.Itoa(i) + ".fits"
			path := writeMOC(t, dir, name, "1K", tt.cards, []int64{int64(base5.Start), int64(base5.End)})

			got, err := FITSDecoder{}.Decode(path)
			require.NoError(t, err)
			assert.Equal(t, types.CoverageMap{
				"0": {5},
				"2": {},
			}, got)
		})
	}
}

func TestFITSDecoder_NUNIQOrderFromMOC2Header(t *testing.T) {
	dir := t.TempDir()
	cards := []fitsio.Card{
		{Name: "MOCVERS", Value: "2.0"},
		{Name: "MOCDIM", Value: "SPACE"},
		{Name: "ORDERING", Value: "NUNIQ"},
		{Name: "MOCORD_S", Value: 4},
	}
	path := writeMOC(t, dir, "nuniq2.fits", "1K", cards, []int64{int64(Uniq(1, 17))})

	got, err := FITSDecoder{}.Decode(path)
	require.NoError(t, err)
	assert.Equal(t, types.CoverageMap{
		"1": {17},
		"4": {},
	}, got)
}

func TestFITSDecoder_Errors(t *testing.T) {
	dir := t.TempDir()

	notFITS := filepath.Join(dir, "garbage.fits")
	require.NoError(t, os.WriteFile(notFITS, []byte("this is not a FITS file"), 0o644))

	badUniq := writeMOC(t, dir, "bad-uniq.fits", "1K", nuniqCards(1), []int64{2})
	negative := writeMOC(t, dir, "negative.fits", "1K", nuniqCards(1), []int64{-5})
	oddRange := writeMOC(t, dir, "odd.fits", "1K", []fitsio.Card{
		{Name: "ORDERING", Value: "RANGE"},
	}, []int64{0, 4, 8})
	timeMOC := writeMOC(t, dir, "time.fits", "1K", []fitsio.Card{
		{Name: "MOCDIM", Value: "TIME"},
		{Name: "ORDERING", Value: "RANGE"},
	}, []int64{0, 4})

	tests := []struct {
		name        string
		path        string
		wantMalform bool
	}{
		{name: "missing file", path: filepath.Join(dir, "absent.fits")},
		{name: "not FITS", path: notFITS, wantMalform: true},
		{name: "invalid uniq", path: badUniq, wantMalform: true},
		{name: "negative value", path: negative, wantMalform: true},
		{name: "odd range column", path: oddRange, wantMalform: true},
		{name: "time MOC", path: timeMOC, wantMalform: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FITSDecoder{}.Decode(tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.wantMalform, errors.Is(err, ErrMalformed))
		})
	}
}

func TestColumnType(t *testing.T) {
	tests := []struct {
		format  string
		want    byte
		wantErr bool
	}{
		{format: "1K", want: 'K'},
		{format: "K", want: 'K'},
		{format: "1J", want: 'J'},
		{format: " 1i ", want: 'I'},
		{format: "2K", wantErr: true},
		{format: "1E", wantErr: true},
		{format: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := columnType(tt.format)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
