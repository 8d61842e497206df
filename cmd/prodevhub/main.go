// Command prodevhub runs the ProDevHub API server and a small terminal
// client for it.
//
//	prodevhub serve         start the HTTP server
//	prodevhub migrate up    apply database migrations and exit
//	prodevhub login         sign in and remember the tokens
//	prodevhub stats         print your coding statistics
//	prodevhub logout        forget the stored tokens
//
// The main package stays thin: it reads configuration, builds a logger and
// hands over to internal/server or internal/client.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/prodevhub/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "prodevhub",
	Short: "Developer productivity tracker",
	Long: `prodevhub tracks coding sessions and projects, and turns them into
statistics and AI-generated reports.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, loginCmd, logoutCmd, statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.LogFormat) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
