// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/moc-converter/internal/catalog"
	"github.com/pdiddy/moc-converter/pkg/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Query the catalog of converted maps",
	Long: `Catalog reads the SQLite catalog that convert --catalog maintains: one
entry per map with its source digest, orders, cell count, sky fraction, and
the run that last wrote it.`,
}

// --- list subcommand ---

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List converted maps",
	RunE:  runCatalogList,
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(context.Background())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatCatalogList(entries, jsonOutput)
}

func formatCatalogList(entries []types.MapEntry, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No maps in catalog.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-30s  %-9s  %-10s  %-10s  %-16s  %s\n",
		"Name", "MaxOrder", "Cells", "Sky %", "Digest", "Status")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 96))

	for _, e := range entries {
		name := e.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-30s  %-9d  %-10d  %-10.4f  %-16s  %s\n",
			name, e.MaxOrder, e.Cells, e.SkyFraction*100, e.Digest, e.Status)
	}

	fmt.Fprintf(os.Stdout, "\n%d maps\n", len(entries))
	return nil
}

// --- export subcommand ---

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog to YAML or JSON",
	RunE:  runCatalogExport,
}

func runCatalogExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")

	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	switch format {
	case "yaml", "":
		if out == "" {
			out = "catalog.yaml"
		}
		if err := store.ExportYAML(context.Background(), out); err != nil {
			return err
		}
	case "json":
		if out == "" {
			out = "catalog.json"
		}
		if err := store.ExportJSON(context.Background(), out); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	fmt.Printf("Exported to %s\n", out)
	return nil
}

// --- shared helpers ---

func openCatalog() (*catalog.Store, error) {
	cfg := catalogConfig()
	if cfg.Path == "" {
		return nil, errors.New("no catalog configured: pass --catalog or set catalog.path")
	}
	return catalog.Open(cfg)
}

func init() {
	catalogListCmd.Flags().Bool("json", false, "output entries as JSON")

	catalogExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	catalogExportCmd.Flags().String("out", "", "output file (default catalog.yaml or catalog.json)")

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogExportCmd)

	rootCmd.AddCommand(catalogCmd)
}
