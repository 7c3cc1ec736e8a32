package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vango-dev/navroute/internal/config"
	"github.com/vango-dev/navroute/internal/manifest"
	"github.com/vango-dev/navroute/pkg/routepath"
	"github.com/vango-dev/navroute/pkg/router"
)

// loadConfig reads navroute.json (when present), applies the environment
// and then command-line overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case flags.configPath != "":
		cfg, err = config.LoadFile(flags.configPath)
	default:
		wd, wdErr := os.Getwd()
		if wdErr != nil {
			return nil, wdErr
		}
		if root, findErr := config.FindProjectRoot(wd); findErr == nil {
			cfg, err = config.Load(root)
		} else {
			cfg = config.New()
		}
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.LoadEnv(flags.envFile); err != nil {
		return nil, err
	}

	if flags.manifest != "" {
		cfg.Manifest = flags.manifest
		if !strings.HasPrefix(cfg.Manifest, "s3://") {
			abs, err := filepath.Abs(cfg.Manifest)
			if err != nil {
				return nil, err
			}
			cfg.Manifest = abs
		}
	}
	if flags.base != "" {
		cfg.Base = routepath.NormalizeBase(flags.base)
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadTable builds the route table from the configured manifest or the
// inline routes. The returned base prefers the config over the manifest.
func loadTable(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*router.Table, string, error) {
	m := &manifest.Manifest{Base: cfg.Base, Routes: cfg.Routes, Source: cfg.Path()}

	if loc := cfg.ManifestLocation(); loc != "" {
		opts := []manifest.LoaderOption{manifest.WithLogger(logger)}
		if cfg.S3.Region != "" {
			opts = append(opts, manifest.WithS3(manifest.NewS3Client(manifest.S3Options{
				Region:   cfg.S3.Region,
				Endpoint: cfg.S3.Endpoint,
			})))
		}
		loaded, err := manifest.NewLoader(opts...).Load(ctx, loc)
		if err != nil {
			return nil, "", err
		}
		m = loaded
	}

	table, err := m.Table()
	if err != nil {
		return nil, "", err
	}

	base := cfg.Base
	if base == "" {
		base = m.Base
	}
	return table, base, nil
}

// setup loads config, logger and route table for a command.
func setup(ctx context.Context, flags *globalFlags) (*config.Config, *slog.Logger, *router.Table, string, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, nil, "", err
	}
	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := newLogger(os.Stderr, level, cfg.Log.Format)

	table, base, err := loadTable(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, "", err
	}
	return cfg, logger, table, base, nil
}
