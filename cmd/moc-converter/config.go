package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/moc-converter/pkg/types"
)

// bindFlag lets the config file and MOC_CONVERTER_* env vars supply a
// flag's value under key.
func bindFlag(key string, f *pflag.Flag) {
	cobra.CheckErr(viper.BindPFlag(key, f))
}

func conversionConfig() types.ConversionConfig {
	return types.ConversionConfig{
		InputDir:      viper.GetString("convert.input_dir"),
		OutputDir:     viper.GetString("convert.output_dir"),
		Extension:     viper.GetString("convert.extension"),
		WriteManifest: viper.GetBool("convert.write_manifest"),
		Incremental:   viper.GetBool("convert.incremental"),
		MetricsFile:   viper.GetString("convert.metrics_file"),
	}
}

func catalogConfig() types.CatalogConfig {
	return types.CatalogConfig{Path: viper.GetString("catalog.path")}
}

func serveConfig() types.ServeConfig {
	return types.ServeConfig{
		Addr:            viper.GetString("serve.addr"),
		Dir:             viper.GetString("serve.dir"),
		Prefix:          viper.GetString("serve.prefix"),
		ShutdownTimeout: viper.GetDuration("serve.shutdown_timeout"),
	}
}
