package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/vango-dev/navroute/internal/errors"
	"github.com/vango-dev/navroute/pkg/routepath"
)

// Environment variables that override navroute.json.
const (
	EnvAddr     = "NAVROUTE_ADDR"
	EnvBase     = "NAVROUTE_BASE"
	EnvManifest = "NAVROUTE_MANIFEST"
	EnvLogLevel = "NAVROUTE_LOG_LEVEL"
	EnvS3Region = "NAVROUTE_S3_REGION"
)

// LoadEnv applies dotenv files and then the process environment.
// Process variables win over dotenv values. Missing files are skipped.
func (c *Config) LoadEnv(files ...string) error {
	vars := make(map[string]string)
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		read, err := godotenv.Read(f)
		if err != nil {
			return errors.New("N030").
				WithDetail("Failed to read " + f).
				Wrap(err)
		}
		for k, v := range read {
			vars[k] = v
		}
	}

	return c.ApplyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	})
}

// ApplyEnv overrides fields from lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAddr); ok && v != "" {
		host, port, err := net.SplitHostPort(v)
		if err != nil {
			return errors.New("N031").
				WithDetail(fmt.Sprintf("%s=%q is not host:port", EnvAddr, v)).
				Wrap(err)
		}
		n, err := strconv.Atoi(port)
		if err != nil {
			return errors.New("N031").
				WithDetail(fmt.Sprintf("%s=%q has a non-numeric port", EnvAddr, v)).
				Wrap(err)
		}
		c.Server.Host = host
		c.Server.Port = n
	}
	if v, ok := lookup(EnvBase); ok {
		c.Base = routepath.NormalizeBase(v)
	}
	if v, ok := lookup(EnvManifest); ok && v != "" {
		c.Manifest = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvS3Region); ok && v != "" {
		c.S3.Region = v
	}
	return nil
}
