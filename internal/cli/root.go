// Package cli implements the comfyrun command surface.
package cli

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sdharcourt/comfyrun/client"
	"github.com/sdharcourt/comfyrun/internal/config"
	"github.com/spf13/cobra"
)

var (
	flagHost      string
	flagPort      int
	flagTimeout   time.Duration
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string

	cfg    config.Config
	logger *slog.Logger
)

// defaultHost returns the default server host, checking COMFYRUN_HOST
// first.
func defaultHost() string {
	if h := os.Getenv("COMFYRUN_HOST"); h != "" {
		return h
	}
	return ""
}

// NewRootCmd creates the root cobra command for the comfyrun CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "comfyrun",
		Short: "comfyrun runs ComfyUI workflows from the command line",
		Long: "comfyrun loads a saved ComfyUI workflow (API format), overrides prompt text,\n" +
			"sampling steps and seed, and queues it on a running ComfyUI server.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(flagConfig)
			if err != nil {
				return err
			}
			// precedence: flag > env > config file > built-in
			if cmd.Flags().Changed("host") {
				cfg.Host = flagHost
			} else if h := defaultHost(); h != "" {
				cfg.Host = h
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = flagPort
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = flagLogLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.LogFormat = flagLogFormat
			}
			logger = newLogger(cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(logger)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagHost, "host", "127.0.0.1", "ComfyUI server host (or COMFYRUN_HOST env)")
	root.PersistentFlags().IntVar(&flagPort, "port", 8188, "ComfyUI server port")
	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", client.DefaultTimeout, "HTTP request timeout (0 to disable)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.config/comfyrun/config.yaml)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newShowCmd(),
		newStatsCmd(),
		newQueueCmd(),
		newInterruptCmd(),
		newHistoryCmd(),
	)

	return root
}

// newClient builds a client from the resolved configuration.
func newClient() *client.Client {
	return client.NewWithTimeout(cfg.Host, cfg.Port, flagTimeout)
}

// newLogger builds a slog logger writing to stderr; stdout is reserved
// for program output.
func newLogger(level string, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
