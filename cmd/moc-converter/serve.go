package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/moc-converter/internal/metrics"
	"github.com/pdiddy/moc-converter/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve converted JSON documents over HTTP",
	Long: `Serve publishes the documents in a directory so the sky viewer can load
them: GET {prefix}/<name>.json returns one document and
GET {prefix}/moc_manifest.json lists them. /healthz reports liveness and,
with --metrics, /metrics exposes request counts and latencies.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("dir", "public/moc_json", "directory of converted documents")
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("prefix", "/moc_json", "URL path the documents are served under")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "grace period for in-flight requests on shutdown")
	serveCmd.Flags().Bool("metrics", false, "record request metrics and expose them at /metrics")

	bindFlag("serve.dir", serveCmd.Flags().Lookup("dir"))
	bindFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
	bindFlag("serve.prefix", serveCmd.Flags().Lookup("prefix"))
	bindFlag("serve.shutdown_timeout", serveCmd.Flags().Lookup("shutdown-timeout"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	var rec *metrics.Recorder
	if on, _ := cmd.Flags().GetBool("metrics"); on {
		rec = metrics.New()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(serveConfig(), diag, rec).Run(ctx)
}
