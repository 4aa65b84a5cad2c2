package main

import (
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/simp-lee/pagebind/config"
	"github.com/simp-lee/pagebind/logger"
)

type rootFlags struct {
	envFile  string
	logLevel string
	logJSON  bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "pagebind",
		Short:         "Turn page images into an ePub",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "optional .env file with PAGEBIND_* settings")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides PAGEBIND_LOG_LEVEL)")
	cmd.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "log as JSON")

	cmd.AddCommand(newServeCmd(flags), newConvertCmd(flags))
	return cmd
}

func (f *rootFlags) loadOptions() config.LoadOptions {
	var files []string
	if f.envFile != "" {
		files = append(files, f.envFile)
	}
	return config.LoadOptions{DotEnvFiles: files}
}

// setup loads the configuration and builds the logger from it and the flags.
func (f *rootFlags) setup() (*config.Config, *charmlog.Logger, error) {
	cfg, err := config.Load(f.loadOptions())
	if err != nil {
		return nil, nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logJSON {
		cfg.Log.JSON = true
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Output: os.Stderr})
	return cfg, log, nil
}
