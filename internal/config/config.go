package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gadgetbot/zitadel-workbench/internal/migration"
	"github.com/gadgetbot/zitadel-workbench/internal/models"
)

// Defaults.
const (
	DefaultIssuerURL = "http://localhost:8080"
	DefaultListen    = ":8080"
	DefaultTimeout   = 30 * time.Second
)

// ConnectionConfig represents a pre-configured workbench connection.
type ConnectionConfig struct {
	Name      string `yaml:"name"`
	Role      string `yaml:"role"` // "source" or "destination"
	IssuerURL string `yaml:"issuer_url"`
	Token     string `yaml:"token"`
	Insecure  bool   `yaml:"insecure"`
	CACert    string `yaml:"ca_cert"`
}

// ZitadelConfig describes the instance the CLIs talk to.
type ZitadelConfig struct {
	IssuerURL string        `yaml:"issuer_url"`
	Token     string        `yaml:"token"`
	ClientID  string        `yaml:"client_id"`
	Insecure  bool          `yaml:"insecure"`
	CACert    string        `yaml:"ca_cert"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ImportConfig holds replay policy.
type ImportConfig struct {
	TolerateRoleConflicts bool     `yaml:"tolerate_role_conflicts"`
	ValidateClientIDs     bool     `yaml:"validate_client_ids"`
	SentinelApps          []string `yaml:"sentinel_apps"`
	Ledger                string   `yaml:"ledger"`
}

// LogConfig selects the diagnostic log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config holds all configuration (defaults, config file, environment, flags).
type Config struct {
	Listen      string              `yaml:"listen"`
	Connections []ConnectionConfig  `yaml:"connections"`
	Zitadel     ZitadelConfig       `yaml:"zitadel"`
	Import      ImportConfig        `yaml:"import"`
	Rules       []migration.Rule    `yaml:"rules"`
	Exclude     map[string][]string `yaml:"exclude"`
	Log         LogConfig           `yaml:"log"`
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	return &Config{
		Listen: DefaultListen,
		Zitadel: ZitadelConfig{
			IssuerURL: DefaultIssuerURL,
			Timeout:   DefaultTimeout,
		},
		Import: ImportConfig{
			SentinelApps: []string{"GadgetBot Web"},
		},
		Exclude: map[string][]string{},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or
// $WORKBENCH_CONFIG when path is empty), then ZITADEL_* environment variables.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	c := Default()
	if path == "" {
		path = getenv("WORKBENCH_CONFIG")
	}
	if path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, err
		}
	}
	c.applyEnv(getenv)
	return c, nil
}

// Parse reads the workbench's CLI flags, then overlays config file values.
// CLI flags take precedence over config file values.
func Parse() *Config {
	var configFile, listen, logLevel string
	flag.StringVar(&configFile, "config", "", "Path to config file (YAML)")
	flag.StringVar(&listen, "listen", "", "HTTP listen address")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	c, err := Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config file: %v\n", err)
		os.Exit(1)
	}
	if listen != "" {
		c.Listen = listen
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	return c
}

// loadFile reads a YAML config file over the current values. Keys absent
// from the file leave the current value alone.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if c.Exclude == nil {
		c.Exclude = map[string][]string{}
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("ZITADEL_ISSUER_URL"); v != "" {
		c.Zitadel.IssuerURL = v
	}
	if v := getenv("ZITADEL_SERVICE_TOKEN"); v != "" {
		c.Zitadel.Token = v
	}
	if v := getenv("ZITADEL_CLIENT_ID"); v != "" {
		c.Zitadel.ClientID = v
	}
}

// Connection returns the CLI target as a connection.
func (z ZitadelConfig) Connection() *models.Connection {
	return &models.Connection{
		Name:      "zitadel",
		IssuerURL: z.IssuerURL,
		Token:     z.Token,
		Insecure:  z.Insecure,
		CACert:    z.CACert,
		Timeout:   z.Timeout,
	}
}

// Connection converts a configured connection, defaulting the role to source.
func (cc ConnectionConfig) Connection(timeout time.Duration) *models.Connection {
	role := cc.Role
	if role == "" {
		role = "source"
	}
	return &models.Connection{
		Name:      cc.Name,
		Role:      role,
		IssuerURL: cc.IssuerURL,
		Token:     cc.Token,
		Insecure:  cc.Insecure,
		CACert:    cc.CACert,
		Timeout:   timeout,
	}
}

// ImportOptions returns the replay policy described by the configuration.
func (c *Config) ImportOptions() migration.ImportOptions {
	return migration.ImportOptions{
		TolerateRoleConflicts: c.Import.TolerateRoleConflicts,
		Rules:                 c.Rules,
		Exclude:               c.Exclude,
		ValidateClientIDs:     c.Import.ValidateClientIDs || c.Zitadel.ClientID != "",
		ClientIDCheck: migration.ClientIDCheck{
			ExpectedClientID: c.Zitadel.ClientID,
			SentinelApps:     c.Import.SentinelApps,
		},
	}
}
