package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	harvester "github.com/jamesprial/go-reddit-harvester"
	pkgerrs "github.com/jamesprial/go-reddit-harvester/pkg/errors"
	"github.com/jamesprial/go-reddit-harvester/pkg/types"
)

const fullYAML = `
credentials:
  client_id: file-id
  client_secret: file-secret
  username: file-user
  password: file-pass
user_agent: harvester-test/1.0
communities: [golang, rust]
listings: [new, top]
time_ranges: [week, all]
limit: 50
merge_policy: upsert
drop_incomplete: true
retry:
  attempts: 4
  delay: 500ms
  max_delay: 10s
output:
  csv: out.csv
  include_url: true
  sqlite: out.sqlite
nats:
  url: nats://127.0.0.1:4222
logging:
  level: debug
  format: json
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvest.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Credentials.Username != "file-user" || cfg.UserAgent != "harvester-test/1.0" {
		t.Errorf("unexpected credentials %+v / %q", cfg.Credentials, cfg.UserAgent)
	}
	if cfg.Retry.Delay != 500*time.Millisecond || cfg.Retry.MaxDelay != 10*time.Second {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if cfg.NATS.Subject != "reddit.posts" {
		t.Errorf("NATS.Subject = %q, want default", cfg.NATS.Subject)
	}
	if !cfg.Output.IncludeURL || cfg.Output.SQLite != "out.sqlite" {
		t.Errorf("Output = %+v", cfg.Output)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("communities: [golang]\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !reflect.DeepEqual(cfg.Listings, DefaultListings) {
		t.Errorf("Listings = %v, want %v", cfg.Listings, DefaultListings)
	}
	if !reflect.DeepEqual(cfg.TimeRanges, []types.TimeRange{types.TimeRangeDay}) {
		t.Errorf("TimeRanges = %v", cfg.TimeRanges)
	}
	if cfg.Limit != harvester.DefaultLimit {
		t.Errorf("Limit = %d", cfg.Limit)
	}
	if cfg.Output.CSV != "harvest.csv" {
		t.Errorf("Output.CSV = %q", cfg.Output.CSV)
	}
	if cfg.NATS.Subject != "" {
		t.Errorf("NATS.Subject = %q, want empty without a URL", cfg.NATS.Subject)
	}

	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		t.Fatal(err)
	}
	if clientCfg.Retry != nil {
		t.Error("retry must stay disabled without attempts")
	}
	if clientCfg.MergePolicy != harvester.MergeAppend {
		t.Errorf("MergePolicy = %v", clientCfg.MergePolicy)
	}
}

func TestParse_EnvOverridesCredentials(t *testing.T) {
	t.Setenv(EnvClientID, "env-id")
	t.Setenv(EnvPassword, "env-pass")

	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatal(err)
	}

	want := CredentialsConfig{
		ClientID:     "env-id",
		ClientSecret: "file-secret",
		Username:     "file-user",
		Password:     "env-pass",
	}
	if cfg.Credentials != want {
		t.Errorf("Credentials = %+v, want %+v", cfg.Credentials, want)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		wantField string
	}{
		{"no communities", "listings: [hot]\n", "communities"},
		{"unknown listing", "communities: [golang]\nlistings: [gilded]\n", "listings"},
		{"unknown time range", "communities: [golang]\ntime_ranges: [decade]\n", "time_ranges"},
		{"negative limit", "communities: [golang]\nlimit: -1\n", "limit"},
		{"unknown merge policy", "communities: [golang]\nmerge_policy: replace\n", "MergePolicy"},
		{"unknown log format", "communities: [golang]\nlogging: {format: xml}\n", "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			var cfgErr *pkgerrs.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %T (%v)", err, err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}

	if _, err := Parse([]byte("communities: [golang\n")); err == nil {
		t.Error("expected YAML syntax error")
	}
}

func TestConfig_Requests(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatal(err)
	}

	got := cfg.Requests()
	want := []types.ListingRequest{
		{Community: "golang", Kind: types.ListingNew, Limit: 50},
		{Community: "golang", Kind: types.ListingTop, TimeRange: types.TimeRangeWeek, Limit: 50},
		{Community: "golang", Kind: types.ListingTop, TimeRange: types.TimeRangeAll, Limit: 50},
		{Community: "rust", Kind: types.ListingNew, Limit: 50},
		{Community: "rust", Kind: types.ListingTop, TimeRange: types.TimeRangeWeek, Limit: 50},
		{Community: "rust", Kind: types.ListingTop, TimeRange: types.TimeRangeAll, Limit: 50},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Requests() = %+v\nwant %+v", got, want)
	}
}

func TestConfig_ClientConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatal(err)
	}

	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		t.Fatal(err)
	}
	if clientCfg.MergePolicy != harvester.MergeUpsert || !clientCfg.DropIncomplete {
		t.Errorf("policy = %v, drop = %v", clientCfg.MergePolicy, clientCfg.DropIncomplete)
	}
	if clientCfg.Retry == nil || clientCfg.Retry.Attempts != 4 || clientCfg.Retry.Delay != 500*time.Millisecond {
		t.Errorf("Retry = %+v", clientCfg.Retry)
	}
	if clientCfg.ClientID != "file-id" || clientCfg.UserAgent != "harvester-test/1.0" {
		t.Errorf("credentials not carried: %+v", clientCfg)
	}
}
