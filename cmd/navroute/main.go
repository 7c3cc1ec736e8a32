package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vango-dev/navroute/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	manifest   string
	base       string
	logLevel   string
	envFile    string
	noColor    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(errors.Classify(err, "N050"))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "navroute",
		Short: "Client-side route tables and navigation",
		Long: `navroute resolves URL paths against a route table and serves
single-page application shells whose history is driven by a navigation
controller.

Routes come from navroute.json, a JSON manifest on disk, or a manifest
stored in S3 (s3://bucket/key).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor {
				errors.DisableColors()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to navroute.json (default: search from the working directory)")
	pf.StringVarP(&flags.manifest, "manifest", "m", "", "Route manifest file or s3://bucket/key")
	pf.StringVar(&flags.base, "base", "", "Deployment base path, e.g. /app")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flags.envFile, "env-file", ".env", "Dotenv file applied before the process environment")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable colored error output")

	rootCmd.AddCommand(
		serveCmd(flags),
		matchCmd(flags),
		routesCmd(flags),
		resolveCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// newLogger builds the CLI logger.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
