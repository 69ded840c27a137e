package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gridmap/internal/ingest"
	"gridmap/internal/mapview"
	"gridmap/internal/network"
)

// Config holds the service configuration.
type Config struct {
	HTTPAddr          string         `yaml:"http_addr"`
	LogLevel          string         `yaml:"log_level"`
	DatabaseURL       string         `yaml:"database_url,omitempty"`
	Variant           string         `yaml:"variant"`
	DataDir           string         `yaml:"data_dir"`
	Sources           ingest.Sources `yaml:"sources"`
	RefreshInterval   time.Duration  `yaml:"refresh_interval"`
	SnapshotRetention int            `yaml:"snapshot_retention"`
	Map               MapConfig      `yaml:"map"`
	MQTT              MQTTConfig     `yaml:"mqtt,omitempty"`
}

// MapConfig sets the initial viewport and tile layer of rendered maps.
type MapConfig struct {
	CenterLat   float64 `yaml:"center_lat"`
	CenterLon   float64 `yaml:"center_lon"`
	Zoom        int     `yaml:"zoom"`
	TileURL     string  `yaml:"tile_url"`
	Attribution string  `yaml:"attribution"`
}

// MQTTConfig holds MQTT broker configuration for refresh notices.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`       // host:port
	TopicPrefix string `yaml:"topic_prefix"` // default "gridmap"
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
}

func DefaultConfigPath() string {
	return "gridmap.yaml"
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	opts := mapview.DefaultOptions()
	return &Config{
		HTTPAddr:          ":8081",
		LogLevel:          "info",
		Variant:           string(network.VariantPartitioned),
		DataDir:           "data",
		Sources:           ingest.DefaultSources(),
		RefreshInterval:   5 * time.Minute,
		SnapshotRetention: 50,
		Map: MapConfig{
			CenterLat:   opts.Center.Lat,
			CenterLon:   opts.Center.Lon,
			Zoom:        opts.Zoom,
			TileURL:     opts.Tiles.URL,
			Attribution: opts.Tiles.Attribution,
		},
		MQTT: MQTTConfig{
			TopicPrefix: "gridmap",
			ClientID:    "gridmap",
		},
	}
}

// Load reads the config file on top of Default, then applies environment
// overrides. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("HTTP_ADDR", &c.HTTPAddr)
	set("LOG_LEVEL", &c.LogLevel)
	set("DATABASE_URL", &c.DatabaseURL)
	set("GRIDMAP_VARIANT", &c.Variant)
	set("GRIDMAP_DATA_DIR", &c.DataDir)
	if v, ok := lookup("MQTT_BROKER"); ok && strings.TrimSpace(v) != "" {
		c.MQTT.Broker = strings.TrimSpace(v)
		c.MQTT.Enabled = true
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := network.ParseVariant(c.Variant); err != nil {
		errs = append(errs, err)
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("refresh_interval must be positive, got %s", c.RefreshInterval))
	}
	if c.SnapshotRetention < 0 {
		errs = append(errs, fmt.Errorf("snapshot_retention must not be negative, got %d", c.SnapshotRetention))
	}
	if c.Map.Zoom < 0 || c.Map.Zoom > 22 {
		errs = append(errs, fmt.Errorf("map.zoom out of range: %d", c.Map.Zoom))
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
	}
	return errors.Join(errs...)
}

// ParsedVariant returns the validated variant, defaulting to partitioned.
func (c *Config) ParsedVariant() network.Variant {
	v, err := network.ParseVariant(c.Variant)
	if err != nil {
		return network.VariantPartitioned
	}
	return v
}

// MapOptions converts the map section for mapview.
func (c *Config) MapOptions() mapview.Options {
	return mapview.Options{
		Center: network.LatLon{Lat: c.Map.CenterLat, Lon: c.Map.CenterLon},
		Zoom:   c.Map.Zoom,
		Tiles:  mapview.TileLayer{URL: c.Map.TileURL, Attribution: c.Map.Attribution},
	}
}

// ResolvedSources returns the source paths joined onto DataDir.
func (c *Config) ResolvedSources() ingest.Sources {
	return c.Sources.Resolve(c.DataDir)
}
