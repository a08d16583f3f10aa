package config

import (
	"net/url"
	"time"
)

const (
	// RefreshInterval is the fixed cadence of the vehicle position refresh loop.
	RefreshInterval = 30 * time.Second
	// RequestTimeout bounds every outgoing request to the upstream feeds.
	RequestTimeout = 10 * time.Second
	// StaticBundleMaxRetries caps retries of the static bundle download.
	StaticBundleMaxRetries = 3
)

const (
	vehiclePositionsFeed     = "VehiclePositions.pb"
	vehiclePositionsTextFeed = "VehiclePositions.txt"
	tripUpdatesFeed          = "TripUpdates.pb"
)

// Config holds all the configuration settings for our application.
type Config struct {
	Port            int    `yaml:"port" validate:"required,min=1,max=65535"`
	Env             string `yaml:"env" validate:"required,oneof=development staging production testing"`
	FeedBaseURL     string `yaml:"feed_base_url" validate:"required,url"`
	APIKey          string `yaml:"api_key" validate:"required"`
	StaticDir       string `yaml:"static_dir"`
	StaticBundleURL string `yaml:"static_bundle_url" validate:"omitempty,url"`
	CacheDir        string `yaml:"cache_dir" validate:"required"`
	IconDir         string `yaml:"icon_dir" validate:"required"`
	Timezone        string `yaml:"timezone" validate:"required"`
	SentryDSN       string `yaml:"sentry_dsn"`
}

// Default returns the configuration used when nothing else is supplied.
// APIKey has no default and must come from the environment or a config file.
func Default() *Config {
	return &Config{
		Port:        5001,
		Env:         "development",
		FeedBaseURL: "https://go.bkk.hu/api/query/v1/ws/gtfs-rt/full",
		StaticDir:   "gtfs",
		CacheDir:    "cache",
		IconDir:     "icons",
		Timezone:    "Europe/Budapest",
	}
}

// VehiclePositionsURL is the binary vehicle positions feed.
func (cfg *Config) VehiclePositionsURL() string {
	return cfg.feedURL(vehiclePositionsFeed)
}

// VehiclePositionsTextURL is the plain-text rendition of the vehicle positions
// feed, used as a side channel for licence plates and vehicle models.
func (cfg *Config) VehiclePositionsTextURL() string {
	return cfg.feedURL(vehiclePositionsTextFeed)
}

// TripUpdatesURL is the binary trip updates feed.
func (cfg *Config) TripUpdatesURL() string {
	return cfg.feedURL(tripUpdatesFeed)
}

func (cfg *Config) feedURL(name string) string {
	u, err := url.Parse(cfg.FeedBaseURL)
	if err != nil {
		return ""
	}
	u = u.JoinPath(name)
	q := u.Query()
	q.Set("key", cfg.APIKey)
	u.RawQuery = q.Encode()
	return u.String()
}

// Location resolves the service-day timezone of the static schedule.
func (cfg *Config) Location() (*time.Location, error) {
	return time.LoadLocation(cfg.Timezone)
}
