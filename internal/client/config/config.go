// Package config loads runtime settings for the Rosterhub client.
package config

import "time"

// Config holds runtime settings for the client.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend HTTP endpoint.
//   - PageSize: directory page size.
//   - OnlineCheckInterval: how often the client probes server reachability.
type Config struct {
	ServerEndpointAddr  string
	PageSize            int
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:8080"
	c.PageSize = 10
	c.OnlineCheckInterval = 3 * time.Second
}

// ServerURL is the HTTP base URL for the configured endpoint.
func (c *Config) ServerURL() string {
	return "http://" + c.ServerEndpointAddr
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
