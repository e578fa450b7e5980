// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns a directory of MOC files into per-file JSON
// documents grouped by HEALPix order, the format the sky viewer loads.
package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/moc-converter/internal/metrics"
	"github.com/pdiddy/moc-converter/pkg/types"
)

// DefaultExtension selects coverage files when the config leaves it empty.
const DefaultExtension = ".fits"

var (
	// ErrDecode reports an input that could not be read or decoded.
	ErrDecode = errors.New("decode error")

	// ErrIO reports a failure creating directories or writing output.
	ErrIO = errors.New("i/o error")
)

// Decoder turns a coverage file into its cells per order. FITS decoding
// lives in internal/moc; tests substitute fakes.
type Decoder interface {
	// Decode reads the file at path and returns order -> cells.
	Decode(path string) (types.CoverageMap, error)
}

// Catalog records conversions so later runs can skip unchanged inputs.
// *catalog.Store implements it.
type Catalog interface {
	BeginRun(ctx context.Context, runID, inputDir, outputDir string) error
	FinishRun(ctx context.Context, runID string, converted, skipped int, runErr error) error
	Lookup(ctx context.Context, name string) (types.MapEntry, bool, error)
	Record(ctx context.Context, e types.MapEntry) error
	MarkSkipped(ctx context.Context, name, runID string) error
}

// BatchResult holds the outcome of a conversion run.
type BatchResult struct {
	RunID     string
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the number of input files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether the run stopped on a failed file.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Result describes one converted file.
type Result struct {
	Name       string
	SourcePath string
	OutputPath string
	Digest     string
	Document   types.Document
}

// Converter converts coverage files from cfg.InputDir into cfg.OutputDir.
type Converter struct {
	cfg     types.ConversionConfig
	dec     Decoder
	out     io.Writer
	log     zerolog.Logger
	catalog Catalog
	metrics *metrics.Recorder
}

// Option configures a Converter.
type Option func(*Converter)

// WithProgress sets where per-file progress lines go (default io.Discard).
func WithProgress(w io.Writer) Option {
	return func(c *Converter) { c.out = w }
}

// WithLogger sets the diagnostic logger (default no-op).
func WithLogger(l zerolog.Logger) Option {
	return func(c *Converter) { c.log = l }
}

// WithCatalog records every conversion and enables incremental runs.
func WithCatalog(cat Catalog) Option {
	return func(c *Converter) { c.catalog = cat }
}

// WithMetrics observes every conversion in m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(c *Converter) { c.metrics = m }
}

// New returns a Converter for cfg that decodes with dec.
func New(cfg types.ConversionConfig, dec Decoder, opts ...Option) *Converter {
	if cfg.Extension == "" {
		cfg.Extension = DefaultExtension
	}
	c := &Converter{
		cfg: cfg,
		dec: dec,
		out: io.Discard,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Inputs lists the coverage files in the input directory, sorted by name.
// Names match when they end in the configured extension, ignoring case.
func (c *Converter) Inputs() ([]string, error) {
	entries, err := os.ReadDir(c.cfg.InputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading input directory %s: %w", ErrIO, c.cfg.InputDir, err)
	}
	ext := strings.ToLower(c.cfg.Extension)
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ext) {
			continue
		}
		paths = append(paths, filepath.Join(c.cfg.InputDir, entry.Name()))
	}
	return paths, nil
}

// OutputPath returns the JSON document path for an input file: same base
// name, .json extension, in the output directory.
func (c *Converter) OutputPath(inputPath string) string {
	return filepath.Join(c.cfg.OutputDir, baseName(inputPath)+".json")
}

// ConvertFile decodes one coverage file and writes its JSON document,
// replacing any existing one. Nothing is written when decoding or order
// validation fails.
func (c *Converter) ConvertFile(path string) (Result, error) {
	outPath := c.OutputPath(path)
	fmt.Fprintf(c.out, "Converting %s -> %s\n", path, outPath)

	m, err := c.dec.Decode(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}

	doc, err := BuildDocument(m)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return Result{}, fmt.Errorf("marshaling %s: %w", path, err)
	}

	if err := writeFileAtomic(outPath, data); err != nil {
		return Result{}, fmt.Errorf("%w: writing %s: %w", ErrIO, outPath, err)
	}

	c.log.Debug().
		Str("source", path).
		Str("output", outPath).
		Ints("orders", doc.Orders()).
		Int("cells", doc.CellCount()).
		Msg("converted coverage map")

	return Result{
		Name:       baseName(path),
		SourcePath: path,
		OutputPath: outPath,
		Document:   doc,
	}, nil
}

// Run converts every coverage file in the input directory, one at a time,
// creating the output directory first. The first failure stops the run and
// is returned together with the counts so far.
func (c *Converter) Run(ctx context.Context) (BatchResult, error) {
	result := BatchResult{RunID: uuid.Must(uuid.NewV7()).String()}

	if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
		return result, fmt.Errorf("%w: creating output directory %s: %w", ErrIO, c.cfg.OutputDir, err)
	}

	inputs, err := c.Inputs()
	if err != nil {
		return result, err
	}

	if c.cfg.Incremental && c.catalog == nil {
		c.log.Warn().Msg("incremental mode needs a catalog; converting every file")
	}
	if c.catalog != nil {
		if err := c.catalog.BeginRun(ctx, result.RunID, c.cfg.InputDir, c.cfg.OutputDir); err != nil {
			return result, err
		}
	}

	runErr := c.runInputs(ctx, inputs, &result)

	if runErr == nil && c.cfg.WriteManifest {
		names, err := WriteManifest(c.cfg.OutputDir)
		if err != nil {
			runErr = err
		} else {
			c.log.Debug().Int("documents", len(names)).Msg("wrote manifest")
		}
	}

	fmt.Fprintf(c.out, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())

	c.finish(ctx, result, runErr)
	return result, runErr
}

func (c *Converter) runInputs(ctx context.Context, inputs []string, result *BatchResult) error {
	for _, path := range inputs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		status, err := c.process(ctx, result.RunID, path)
		switch status {
		case types.ConversionDone:
			result.Converted++
		case types.ConversionSkipped:
			result.Skipped++
		case types.ConversionFailed:
			result.Failed++
		}
		if err != nil {
			c.log.Error().Err(err).Str("source", path).Msg("conversion failed")
			return err
		}
	}
	return nil
}

// process converts one input, consulting the catalog when one is attached.
func (c *Converter) process(ctx context.Context, runID, path string) (types.ConversionStatus, error) {
	if c.catalog == nil {
		start := time.Now()
		res, err := c.ConvertFile(path)
		if err != nil {
			return types.ConversionFailed, err
		}
		c.observe(res, time.Since(start))
		return types.ConversionDone, nil
	}

	digest, err := fileDigest(path)
	if err != nil {
		return types.ConversionFailed, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}

	name := baseName(path)
	if c.cfg.Incremental && c.unchanged(ctx, name, digest) {
		fmt.Fprintf(c.out, "skipped: %s (unchanged)\n", name)
		if err := c.catalog.MarkSkipped(ctx, name, runID); err != nil {
			return types.ConversionFailed, err
		}
		if c.metrics != nil {
			c.metrics.Skipped()
		}
		return types.ConversionSkipped, nil
	}

	start := time.Now()
	res, err := c.ConvertFile(path)
	if err != nil {
		return types.ConversionFailed, err
	}
	res.Digest = digest
	c.observe(res, time.Since(start))

	if err := c.catalog.Record(ctx, entryFor(res, runID)); err != nil {
		return types.ConversionFailed, err
	}
	return types.ConversionDone, nil
}

// unchanged reports whether the catalog holds the same digest for name and
// its document is still on disk.
func (c *Converter) unchanged(ctx context.Context, name, digest string) bool {
	entry, ok, err := c.catalog.Lookup(ctx, name)
	if err != nil {
		c.log.Warn().Err(err).Str("name", name).Msg("catalog lookup failed; converting")
		return false
	}
	if !ok || entry.Digest != digest {
		return false
	}
	if _, err := os.Stat(filepath.Join(c.cfg.OutputDir, name+".json")); err != nil {
		c.log.Debug().Str("name", name).Msg("document missing; converting")
		return false
	}
	return true
}

func (c *Converter) observe(res Result, d time.Duration) {
	if c.metrics != nil {
		c.metrics.Converted(res.Document.CellCount(), d)
	}
}

// finish closes out the run in the catalog and metrics. Failures here are
// logged, not returned, so they never mask the run's own error.
func (c *Converter) finish(ctx context.Context, result BatchResult, runErr error) {
	ctx = context.WithoutCancel(ctx)
	if c.catalog != nil {
		if err := c.catalog.FinishRun(ctx, result.RunID, result.Converted, result.Skipped, runErr); err != nil {
			c.log.Warn().Err(err).Msg("recording run in catalog failed")
		}
	}
	if c.metrics != nil {
		c.metrics.RunFinished(time.Now())
		if c.cfg.MetricsFile != "" {
			if err := c.metrics.WriteTextfile(c.cfg.MetricsFile); err != nil {
				c.log.Warn().Err(err).Msg("writing metrics file failed")
			}
		}
	}
}

func entryFor(res Result, runID string) types.MapEntry {
	return types.MapEntry{
		Name:        res.Name,
		SourcePath:  res.SourcePath,
		OutputPath:  res.OutputPath,
		Digest:      res.Digest,
		Orders:      res.Document.Orders(),
		MaxOrder:    res.Document.MaxOrder(),
		Cells:       res.Document.CellCount(),
		SkyFraction: res.Document.SkyFraction(),
		RunID:       runID,
		ConvertedAt: time.Now().UTC(),
		Status:      types.ConversionDone,
	}
}

// fileDigest returns the hex xxhash64 of the file's contents.
func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
