//go:build integration

package integration

import (
	"fmt"

	"vehicletracker.org/internal/config"
)

// loadIntegrationConfig builds the configuration the live tests run against:
// defaults, then the optional YAML file, then FEED_API_KEY and the other
// environment variables.
func loadIntegrationConfig(configFile string) (*config.Config, error) {
	cfg, err := config.Load(config.Flags{ConfigFile: configFile})
	if err != nil {
		return nil, fmt.Errorf("loading integration config: %w", err)
	}
	return cfg, nil
}
