package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/moc-converter/internal/convert"
	"github.com/pdiddy/moc-converter/internal/moc"
	"github.com/pdiddy/moc-converter/pkg/types"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Decode one MOC FITS file and summarize it",
	Long: `Inspect decodes a single MOC FITS file the same way convert does and
prints the cell count per order. With --json it prints the document convert
would write, indented.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().Bool("json", false, "print the converted document instead of a summary")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cov, err := moc.FITSDecoder{}.Decode(args[0])
	if err != nil {
		return err
	}
	doc, err := convert.BuildDocument(cov)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	printDocumentSummary(args[0], doc)
	return nil
}

func printDocumentSummary(path string, doc types.Document) {
	fmt.Printf("File:         %s\n", path)
	fmt.Printf("Max order:    %d\n", doc.MaxOrder())
	fmt.Printf("Cells:        %d\n", doc.CellCount())
	fmt.Printf("Sky coverage: %.6f%%\n\n", doc.SkyFraction()*100)

	fmt.Printf("%-6s  %s\n", "Order", "Cells")
	fmt.Println(strings.Repeat("-", 20))
	for _, r := range doc {
		fmt.Printf("%-6d  %d\n", r.Order, len(r.Cells))
	}
}
