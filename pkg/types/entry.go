// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ConversionStatus indicates what happened to one input file during a run.
type ConversionStatus string

const (
	ConversionDone    ConversionStatus = "converted"
	ConversionSkipped ConversionStatus = "skipped"
	ConversionFailed  ConversionStatus = "failed"
)

// MapEntry describes one converted coverage map, as recorded in the catalog.
type MapEntry struct {
	// Name is the base name shared by the input and output files (e.g. "2MASS-K").
	Name string `json:"name" yaml:"name"`

	// SourcePath is the FITS file the map was decoded from.
	SourcePath string `json:"source_path" yaml:"source_path"`

	// OutputPath is the JSON document written for the map.
	OutputPath string `json:"output_path" yaml:"output_path"`

	// Digest is the xxhash64 of the source file, hex encoded.
	Digest string `json:"digest" yaml:"digest"`

	// Orders lists the orders present in the output document.
	Orders []int `json:"orders" yaml:"orders"`

	// MaxOrder is the deepest order present (-1 when the map is empty).
	MaxOrder int `json:"max_order" yaml:"max_order"`

	// Cells is the total number of cells written.
	Cells int `json:"cells" yaml:"cells"`

	// SkyFraction is the covered fraction of the sphere, in [0, 1].
	SkyFraction float64 `json:"sky_fraction" yaml:"sky_fraction"`

	// RunID identifies the conversion run that last wrote the map.
	RunID string `json:"run_id" yaml:"run_id"`

	// ConvertedAt is when the document was last written.
	ConvertedAt time.Time `json:"converted_at" yaml:"converted_at"`

	// Status is the outcome of the last run that touched the map.
	Status ConversionStatus `json:"status" yaml:"status"`
}
