// Package config holds the flight log's settings, read from a YAML file. Anything the file
// leaves out keeps its default.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"

	fdb "github.com/skypies/flightlog"
	"github.com/skypies/flightlog/log"
)

const (
	BackendMemory    = "memory"
	BackendDatastore = "datastore"
)

type Config struct {
	Store struct {
		Backend         string        `yaml:"backend"` // memory | datastore
		Project         string        `yaml:"project"`
		CredentialsFile string        `yaml:"credentials_file"`
		Timeout         time.Duration `yaml:"timeout"` // per store call
	} `yaml:"store"`

	Reference struct {
		Airports  string `yaml:"airports"` // builtin, a file, or gs://bucket/object
		Snapshot  string `yaml:"snapshot"` // msgpack snapshot; used instead of Airports if present
		CacheSize int    `yaml:"cache_size"`
	} `yaml:"reference"`

	// If Dataset is empty, archived flights are not exported.
	Archive struct {
		Dataset string `yaml:"dataset"`
		Table   string `yaml:"table"`
	} `yaml:"archive"`

	Policy struct {
		TouchdownAltitudeM float64       `yaml:"touchdown_altitude_m"`
		TouchdownSpeedKts  float64       `yaml:"touchdown_speed_kts"`
		NearAirportKM      float64       `yaml:"near_airport_km"`
		StaleAfter         time.Duration `yaml:"stale_after"`
	} `yaml:"policy"`

	Ingest struct {
		BatchConcurrency int `yaml:"batch_concurrency"`
	} `yaml:"ingest"`

	Log struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"log"`
}

func Default() *Config {
	c := Config{}
	c.Store.Backend = BackendMemory
	c.Store.Timeout = 10 * time.Second
	c.Reference.Airports = "builtin"
	c.Reference.CacheSize = 256
	c.Archive.Table = "flights"

	p := fdb.DefaultPolicy()
	c.Policy.TouchdownAltitudeM = p.TouchdownAltitudeM
	c.Policy.TouchdownSpeedKts = p.TouchdownSpeedKts
	c.Policy.NearAirportKM = p.NearAirportKM
	c.Policy.StaleAfter = p.StaleAfter

	c.Ingest.BatchConcurrency = 8
	c.Log.Level = "info"
	return &c
}

// Load reads the file over the defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	return c, c.Validate()
}

// Validate reports every problem, joined.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory:
	case BackendDatastore:
		if c.Store.Project == "" {
			errs = append(errs, errors.New("store.project is required for the datastore backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q: want memory or datastore", c.Store.Backend))
	}
	if c.Store.Timeout <= 0 {
		errs = append(errs, errors.New("store.timeout must be positive"))
	}
	if c.Reference.CacheSize <= 0 {
		errs = append(errs, errors.New("reference.cache_size must be positive"))
	}
	if c.Archive.Dataset != "" && (c.Archive.Table == "" || c.Store.Project == "") {
		errs = append(errs, errors.New("archive needs a table and store.project"))
	}
	if c.Policy.TouchdownAltitudeM <= 0 || c.Policy.TouchdownSpeedKts <= 0 || c.Policy.NearAirportKM <= 0 {
		errs = append(errs, errors.New("policy thresholds must be positive"))
	}
	if c.Policy.StaleAfter <= 0 {
		errs = append(errs, errors.New("policy.stale_after must be positive"))
	}
	if c.Ingest.BatchConcurrency <= 0 {
		errs = append(errs, errors.New("ingest.batch_concurrency must be positive"))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) ArchivalPolicy() fdb.Policy {
	return fdb.Policy{
		TouchdownAltitudeM: c.Policy.TouchdownAltitudeM,
		TouchdownSpeedKts:  c.Policy.TouchdownSpeedKts,
		NearAirportKM:      c.Policy.NearAirportKM,
		StaleAfter:         c.Policy.StaleAfter,
	}
}

// ClientOptions are passed to every GCP client we create.
func (c *Config) ClientOptions() []option.ClientOption {
	if c.Store.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(c.Store.CredentialsFile)}
}
