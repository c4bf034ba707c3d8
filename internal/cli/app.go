// Package cli holds the bootstrapping shared by the command-line tools:
// configuration file, flag and environment overrides, and logging.
package cli

import (
	"Go2NetEntropy/internal/cache"
	"Go2NetEntropy/internal/config"
	"Go2NetEntropy/internal/logging"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App is the state shared by every subcommand of a tool.
type App struct {
	Config *config.Config

	configFile string
	v          *viper.Viper
	logOut     io.Writer
}

// NewApp creates an App whose logs go to stderr.
func NewApp() *App {
	return &App{v: config.NewViper(), logOut: os.Stderr}
}

// Viper exposes the override registry so commands can bind their own flags.
func (a *App) Viper() *viper.Viper {
	return a.v
}

// BindFlags adds the persistent flags common to every tool and loads the
// configuration before any subcommand runs.
func (a *App) BindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Configuration file path (YAML)")
	flags.String("data-dir", "", "Directory holding raw traces")
	flags.String("out-dir", "", "Directory holding cached tables and reports")
	flags.String("compression", "", "Cache compression (gzip, xz)")
	flags.String("log-level", "", "Logging level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (text, json)")

	a.v.BindPFlag("data_dir", flags.Lookup("data-dir"))
	a.v.BindPFlag("out_dir", flags.Lookup("out-dir"))
	a.v.BindPFlag("cache.compression", flags.Lookup("compression"))
	a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	a.v.BindPFlag("log.format", flags.Lookup("log-format"))

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.Load()
	}
}

// Load reads the configuration file, applies flag and environment overrides
// and sets up logging.
func (a *App) Load() error {
	cfg, err := config.LoadConfig(a.configFile)
	if err != nil {
		return err
	}
	cfg.ApplyOverrides(a.v)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logging.Setup(cfg.Log, a.logOut); err != nil {
		return err
	}
	a.Config = cfg
	return nil
}

// Cache opens the artifact cache under the configured output directory.
func (a *App) Cache() (*cache.Cache, error) {
	return cache.New(a.Config.OutDir, a.Config.Cache.Compression)
}
