// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the moc-converter CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/moc-converter/internal/logger"
	"github.com/pdiddy/moc-converter/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// diag is the diagnostic logger, built once flags and config are loaded.
var diag = logger.Nop()

// rootCmd is the base command for the moc-converter CLI.
var rootCmd = &cobra.Command{
	Use:   "moc-converter",
	Short: "Convert MOC sky-coverage FITS files to JSON for the sky viewer",
	Long: `moc-converter turns HEALPix Multi-Order Coverage maps stored as FITS
binary tables into JSON documents grouped by order, the format the sky
viewer front end loads.

Use convert to process a directory, inspect to look at one file, catalog to
query what earlier runs produced, and serve to publish the documents.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		diag = logger.Build(types.LogConfig{
			Level:   viper.GetString("log.level"),
			Console: viper.GetBool("log.console"),
		}, os.Stderr)
		if f := viper.ConfigFileUsed(); f != "" {
			diag.Debug().Str("file", f).Msg("using config file")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./moc-converter.yaml or ~/.config/moc-converter/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "diagnostic log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-console", false, "human-readable diagnostic logs instead of JSON lines")
	rootCmd.PersistentFlags().String("catalog", "", "SQLite catalog of converted maps (empty disables)")

	bindFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	bindFlag("log.console", rootCmd.PersistentFlags().Lookup("log-console"))
	bindFlag("catalog.path", rootCmd.PersistentFlags().Lookup("catalog"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("moc-converter")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "moc-converter"))
		}
	}

	viper.SetEnvPrefix("MOC_CONVERTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintln(os.Stderr, "warning: reading config file:", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
