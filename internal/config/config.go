// Package config loads the harvest command's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	harvester "github.com/jamesprial/go-reddit-harvester"
	pkgerrs "github.com/jamesprial/go-reddit-harvester/pkg/errors"
	"github.com/jamesprial/go-reddit-harvester/pkg/export"
	"github.com/jamesprial/go-reddit-harvester/pkg/types"
)

// Environment variables that override the credentials in the file.
const (
	EnvClientID     = "REDDIT_CLIENT_ID"
	EnvClientSecret = "REDDIT_CLIENT_SECRET"
	EnvUsername     = "REDDIT_USERNAME"
	EnvPassword     = "REDDIT_PASSWORD"
)

// DefaultListings are harvested when the file names none.
var DefaultListings = []types.ListingKind{
	types.ListingHot, types.ListingNew, types.ListingTop, types.ListingRising,
}

// Config is the top-level harvest configuration.
type Config struct {
	Credentials    CredentialsConfig   `yaml:"credentials"`
	UserAgent      string              `yaml:"user_agent"`
	API            APIConfig           `yaml:"api"`
	Communities    []string            `yaml:"communities"`
	Listings       []types.ListingKind `yaml:"listings"`
	TimeRanges     []types.TimeRange   `yaml:"time_ranges"`
	Limit          int                 `yaml:"limit"`
	MergePolicy    string              `yaml:"merge_policy"`
	DropIncomplete bool                `yaml:"drop_incomplete"`
	Retry          RetryConfig         `yaml:"retry"`
	Output         OutputConfig        `yaml:"output"`
	NATS           NATSConfig          `yaml:"nats"`
	Logging        LoggingConfig       `yaml:"logging"`
}

// CredentialsConfig holds the password-grant credentials. The REDDIT_*
// environment variables take precedence.
type CredentialsConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
}

// APIConfig overrides the endpoints. Empty values use the client defaults.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	AuthURL string `yaml:"auth_url"`
}

// RetryConfig is disabled while Attempts is below 2.
type RetryConfig struct {
	Attempts  uint          `yaml:"attempts"`
	Delay     time.Duration `yaml:"delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
	MaxJitter time.Duration `yaml:"max_jitter"`
}

// OutputConfig names the sinks a run writes to. SQLite is optional.
type OutputConfig struct {
	CSV        string `yaml:"csv"`
	IncludeURL bool   `yaml:"include_url"`
	SQLite     string `yaml:"sqlite"`
}

// NATSConfig enables publishing when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Load reads path, applies environment overrides and defaults, and validates
// the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{EnvClientID, &c.Credentials.ClientID},
		{EnvClientSecret, &c.Credentials.ClientSecret},
		{EnvUsername, &c.Credentials.Username},
		{EnvPassword, &c.Credentials.Password},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) applyDefaults() {
	if len(c.Listings) == 0 {
		c.Listings = append([]types.ListingKind(nil), DefaultListings...)
	}
	if len(c.TimeRanges) == 0 {
		c.TimeRanges = []types.TimeRange{types.TimeRangeDay}
	}
	if c.Limit == 0 {
		c.Limit = harvester.DefaultLimit
	}
	if c.Output.CSV == "" {
		c.Output.CSV = "harvest.csv"
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		c.NATS.Subject = export.DefaultSubject
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the fields the harvest run depends on. Credentials are left to
// harvester.NewClient.
func (c *Config) Validate() error {
	if len(c.Communities) == 0 {
		return &pkgerrs.ConfigError{Field: "communities", Message: "at least one community is required"}
	}
	for _, kind := range c.Listings {
		if !kind.Valid() {
			return &pkgerrs.ConfigError{Field: "listings", Message: fmt.Sprintf("unknown listing %q", kind)}
		}
	}
	for _, tr := range c.TimeRanges {
		if !tr.Valid() {
			return &pkgerrs.ConfigError{Field: "time_ranges", Message: fmt.Sprintf("unknown time range %q", tr)}
		}
	}
	if c.Limit < 0 {
		return &pkgerrs.ConfigError{Field: "limit", Message: "must not be negative"}
	}
	if _, err := harvester.ParseMergePolicy(c.MergePolicy); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return &pkgerrs.ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	return nil
}

// Requests expands communities and listings into the listing requests of one
// run. A top listing yields one request per time range.
func (c *Config) Requests() []types.ListingRequest {
	var reqs []types.ListingRequest
	for _, community := range c.Communities {
		for _, kind := range c.Listings {
			if kind != types.ListingTop {
				reqs = append(reqs, types.ListingRequest{Community: community, Kind: kind, Limit: c.Limit})
				continue
			}
			for _, tr := range c.TimeRanges {
				reqs = append(reqs, types.ListingRequest{Community: community, Kind: kind, TimeRange: tr, Limit: c.Limit})
			}
		}
	}
	return reqs
}

// ClientConfig builds the harvester configuration. Logger and HTTP client are
// left for the caller.
func (c *Config) ClientConfig() (*harvester.Config, error) {
	policy, err := harvester.ParseMergePolicy(c.MergePolicy)
	if err != nil {
		return nil, err
	}
	cfg := &harvester.Config{
		Username:       c.Credentials.Username,
		Password:       c.Credentials.Password,
		ClientID:       c.Credentials.ClientID,
		ClientSecret:   c.Credentials.ClientSecret,
		UserAgent:      c.UserAgent,
		BaseURL:        c.API.BaseURL,
		AuthURL:        c.API.AuthURL,
		MergePolicy:    policy,
		DropIncomplete: c.DropIncomplete,
	}
	if c.Retry.Attempts > 1 {
		cfg.Retry = &harvester.RetryConfig{
			Attempts:  c.Retry.Attempts,
			Delay:     c.Retry.Delay,
			MaxDelay:  c.Retry.MaxDelay,
			MaxJitter: c.Retry.MaxJitter,
		}
	}
	return cfg, nil
}
