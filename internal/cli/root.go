package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tessro/startify/internal/config"
	apperrors "github.com/tessro/startify/internal/errors"
	"github.com/tessro/startify/internal/logging"
)

var (
	cfgFile   string
	jsonOut   bool
	outputFmt string
	verbose   bool
	noColor   bool

	cfg       *config.Config
	logger    = slog.New(slog.DiscardHandler)
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "startify",
	Short: "Control the startify playback backend from the terminal",
	Long: `Startify drives the playback backend and its voice and hand engines.

Run 'startify ui' for the interactive dashboard, or use the subcommands
for one-shot control and scripting.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.startifyrc)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output as JSON")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "output format: text, json, yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func initConfig(cmd *cobra.Command) error {
	if _, err := parseOutputMode(outputFmt); err != nil {
		return err
	}

	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidConfig, err)
	}

	opts := logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Verbose: verbose}
	// The dashboard owns the terminal; without a log file its logs are dropped.
	if cmd.Name() == "ui" {
		opts.Fallback = io.Discard
	}
	l, closer, err := logging.New(opts)
	if err != nil {
		return err
	}
	logger, logCloser = l, closer
	logger.Debug("config loaded", slog.Any("config", cfg))
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, apperrors.Format(err))
		os.Exit(1)
	}
}

// Config returns the loaded configuration.
func Config() *config.Config {
	return cfg
}

// JSONOutput returns true if JSON output is requested.
func JSONOutput() bool {
	return GetOutputMode() == OutputJSON
}

// Verbose returns true if verbose output is requested.
func Verbose() bool {
	return verbose
}

// ColorEnabled reports whether text output may carry ANSI styling.
func ColorEnabled() bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
