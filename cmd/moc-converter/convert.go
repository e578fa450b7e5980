package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pdiddy/moc-converter/internal/catalog"
	"github.com/pdiddy/moc-converter/internal/convert"
	"github.com/pdiddy/moc-converter/internal/metrics"
	"github.com/pdiddy/moc-converter/internal/moc"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert every MOC FITS file in a directory to JSON",
	Long: `Convert reads each file in the input directory whose name ends in the
coverage extension (.fits by default, any case), decodes it, and writes a
JSON document with the same base name to the output directory:

  [{"order": 0, "cells": [...]}, {"order": 1, "cells": [...]}, ...]

Records are sorted by order. The first file that fails stops the run.
With --catalog each conversion is recorded in a SQLite catalog, and
--incremental then skips files whose contents have not changed.`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("input-dir", "public/moc", "directory of MOC FITS files")
	convertCmd.Flags().String("output-dir", "public/moc_json", "directory for JSON documents (created if absent)")
	convertCmd.Flags().String("ext", convert.DefaultExtension, "coverage file extension, matched case-insensitively")
	convertCmd.Flags().Bool("manifest", false, "write "+convert.ManifestName+" listing every document in the output directory")
	convertCmd.Flags().Bool("incremental", false, "skip files unchanged since the last run (requires --catalog)")
	convertCmd.Flags().String("metrics-file", "", "write Prometheus metrics for the run to this file")

	bindFlag("convert.input_dir", convertCmd.Flags().Lookup("input-dir"))
	bindFlag("convert.output_dir", convertCmd.Flags().Lookup("output-dir"))
	bindFlag("convert.extension", convertCmd.Flags().Lookup("ext"))
	bindFlag("convert.write_manifest", convertCmd.Flags().Lookup("manifest"))
	bindFlag("convert.incremental", convertCmd.Flags().Lookup("incremental"))
	bindFlag("convert.metrics_file", convertCmd.Flags().Lookup("metrics-file"))

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg := conversionConfig()

	opts := []convert.Option{
		convert.WithProgress(os.Stdout),
		convert.WithLogger(diag),
	}

	if catCfg := catalogConfig(); catCfg.Path != "" {
		store, err := catalog.Open(catCfg)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, convert.WithCatalog(store))
	}

	if cfg.MetricsFile != "" {
		opts = append(opts, convert.WithMetrics(metrics.New()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := convert.New(cfg, moc.FITSDecoder{}, opts...)
	_, err := c.Run(ctx)
	return err
}
