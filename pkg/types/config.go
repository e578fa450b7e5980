package types

import "time"

// ConversionConfig holds settings for the FITS-to-JSON conversion stage.
type ConversionConfig struct {
	// InputDir is the directory scanned for coverage files (e.g. "public/moc").
	InputDir string `json:"input_dir" yaml:"input_dir"`

	// OutputDir receives one JSON document per input file (e.g. "public/moc_json").
	// It is created when absent.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Extension selects input files by suffix, compared case-insensitively
	// (default ".fits").
	Extension string `json:"extension" yaml:"extension"`

	// WriteManifest writes moc_manifest.json listing every JSON document in
	// OutputDir after a successful run.
	WriteManifest bool `json:"write_manifest" yaml:"write_manifest"`

	// Incremental skips inputs whose content digest matches the catalog
	// entry from an earlier run. Requires a catalog.
	Incremental bool `json:"incremental" yaml:"incremental"`

	// MetricsFile, when set, receives the run's Prometheus metrics in
	// textfile-collector format.
	MetricsFile string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty"`
}

// CatalogConfig holds settings for the SQLite catalog of converted maps.
type CatalogConfig struct {
	// Path is the SQLite database file. Empty disables the catalog.
	Path string `json:"path" yaml:"path"`
}

// ServeConfig holds settings for the static MOC server.
type ServeConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr"`

	// Dir is the directory of converted JSON documents.
	Dir string `json:"dir" yaml:"dir"`

	// Prefix is the URL path the documents are served under (default "/moc_json").
	Prefix string `json:"prefix" yaml:"prefix"`

	// ShutdownTimeout bounds graceful shutdown (default 10s).
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LogConfig holds diagnostic logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level"`

	// Console switches from JSON lines to human-readable output.
	Console bool `json:"console" yaml:"console"`
}
