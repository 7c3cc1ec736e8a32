package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/navroute/internal/errors"
	"github.com/vango-dev/navroute/internal/manifest"
	"github.com/vango-dev/navroute/pkg/routepath"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "navroute.json"

	// DefaultPort is the default shell server port.
	DefaultPort = 8080

	// DefaultHost is the default shell server host.
	DefaultHost = "localhost"

	// DefaultMetricsPath is where Prometheus metrics are served.
	DefaultMetricsPath = "/metrics"

	defaultHandshakeTimeout = "5s"
	defaultShutdownTimeout  = "10s"
)

// Config represents the complete navroute.json configuration.
type Config struct {
	// Name is the deployment name.
	Name string `json:"name,omitempty"`

	// Base is the deployment base path, e.g. "/app".
	Base string `json:"base,omitempty"`

	// Manifest is a route manifest file path or s3://bucket/key URI.
	// Relative file paths resolve against the config directory.
	Manifest string `json:"manifest,omitempty"`

	// Routes are inline routes, used when Manifest is empty.
	Routes []manifest.Entry `json:"routes,omitempty"`

	Server  ServerConfig  `json:"server,omitempty"`
	Log     LogConfig     `json:"log,omitempty"`
	Metrics MetricsConfig `json:"metrics,omitempty"`
	S3      S3Config      `json:"s3,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains shell server settings.
type ServerConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`

	// HandshakeTimeout bounds the wait for a client's hello frame.
	HandshakeTimeout string `json:"handshakeTimeout,omitempty"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// S3Config contains settings for s3:// manifests.
type S3Config struct {
	Region string `json:"region,omitempty"`

	// Endpoint overrides the S3 endpoint for compatible stores.
	Endpoint string `json:"endpoint,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             DefaultHost,
			Port:             DefaultPort,
			HandshakeTimeout: defaultHandshakeTimeout,
			ShutdownTimeout:  defaultShutdownTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}

// Load reads navroute.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("N030").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " or pass --manifest").
				Wrap(err)
		}
		return nil, errors.New("N030").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		e := errors.New("N030").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
		if syntax, ok := err.(*json.SyntaxError); ok {
			e.WithOffset(path, data, syntax.Offset)
		}
		return nil, e
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("N030").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("N030").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.HandshakeTimeout == "" {
		c.Server.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	c.Base = routepath.NormalizeBase(c.Base)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("N031").
			WithDetail(fmt.Sprintf("server.port %d must be between 0 and 65535", c.Server.Port))
	}
	if c.Base != "" && c.Base != "/" {
		if _, changed, err := routepath.Canonicalize(c.Base); err != nil || changed {
			return errors.New("N031").
				WithDetail(fmt.Sprintf("base %q is not a canonical path", c.Base)).
				WithSuggestion(`Use a path like "/app" with no trailing slash`)
		}
	}
	if c.Manifest == "" && len(c.Routes) == 0 {
		return errors.New("N031").
			WithDetail("No routes configured").
			WithSuggestion(`Set "manifest" to a routes file or list "routes" inline`)
	}
	for _, field := range []struct{ name, value string }{
		{"server.handshakeTimeout", c.Server.HandshakeTimeout},
		{"server.shutdownTimeout", c.Server.ShutdownTimeout},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			return errors.New("N031").
				WithDetail(fmt.Sprintf("%s %q is not a duration", field.name, field.value)).
				WithSuggestion(`Use Go duration syntax such as "5s" or "500ms"`)
		}
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return errors.New("N031").Wrap(err).
			WithSuggestion("Use debug, info, warn or error")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("N031").
			WithDetail(fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	if strings.HasPrefix(c.Manifest, "s3://") {
		if _, _, err := manifest.ParseS3URI(c.Manifest); err != nil {
			return err
		}
		if c.S3.Region == "" {
			return errors.New("N031").
				WithDetail("s3.region is required for " + c.Manifest).
				WithSuggestion("Set s3.region or NAVROUTE_S3_REGION")
		}
	}
	return nil
}

// Addr returns the host:port the shell server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// ManifestLocation returns Manifest with relative file paths resolved
// against the config directory.
func (c *Config) ManifestLocation() string {
	m := c.Manifest
	if m == "" || strings.HasPrefix(m, "s3://") || filepath.IsAbs(m) || c.Dir() == "" {
		return m
	}
	return filepath.Join(c.Dir(), m)
}

// HandshakeTimeout returns the parsed handshake timeout.
func (c *Config) HandshakeTimeout() time.Duration {
	return parseDurationOr(c.Server.HandshakeTimeout, 5*time.Second)
}

// ShutdownTimeout returns the parsed shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	return parseDurationOr(c.Server.ShutdownTimeout, 10*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up from startDir to the directory holding
// navroute.json.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("N030").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}
