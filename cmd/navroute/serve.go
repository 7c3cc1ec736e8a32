package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vango-dev/navroute/internal/errors"
	"github.com/vango-dev/navroute/internal/manifest"
	"github.com/vango-dev/navroute/internal/shell"
	"github.com/vango-dev/navroute/pkg/router"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		addr      string
		title     string
		notFound  string
		noMetrics bool
		watch     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the application shell",
		Long: `Serve the single-page application shell.

Every path under the base path returns the shell with its route
resolution embedded. Browsers keep their history in sync over a
WebSocket at {base}/_nav/ws.

Examples:
  navroute serve
  navroute serve --addr=:9000 --base=/app
  navroute serve --manifest=s3://deploy/routes.json
  navroute serve --manifest=routes.json --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger, table, base, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Addr()
			}
			metricsPath := cfg.Metrics.Path
			if noMetrics || !cfg.Metrics.Enabled {
				metricsPath = ""
			}
			if title == "" {
				title = cfg.Name
			}

			srv := shell.New(table, shell.Config{
				Addr:             addr,
				Base:             base,
				Title:            title,
				NotFound:         notFound,
				MetricsPath:      metricsPath,
				HandshakeTimeout: cfg.HandshakeTimeout(),
				ShutdownTimeout:  cfg.ShutdownTimeout(),
			}, shell.WithLogger(logger))

			if watch {
				loc := cfg.ManifestLocation()
				if loc == "" || strings.HasPrefix(loc, "s3://") {
					return errors.New("N050").
						WithDetail("--watch needs a manifest file").
						WithSuggestion("Pass --manifest=routes.json")
				}
				w := manifest.NewWatcher(manifest.WatcherConfig{Path: loc, Logger: logger})
				w.OnChange(func(_ *manifest.Manifest, t *router.Table) {
					srv.SetTable(t)
				})
				go w.Start(ctx)
				defer w.Stop()
			}

			success(cmd.OutOrStdout(), "Serving %d routes on http://%s%s/", table.Len(), addr, base)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from navroute.json)")
	cmd.Flags().StringVar(&title, "title", "", "Shell page title (default: config name)")
	cmd.Flags().StringVar(&notFound, "not-found", "", "View reported for unmatched paths")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "Disable the Prometheus endpoint")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the route table when the manifest file changes")

	return cmd
}
