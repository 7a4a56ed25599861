package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dpetukhov/rosterhub/internal/flagx"
	"github.com/dpetukhov/rosterhub/internal/timex"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so intervals can be given either as strings like "3s" or
// as integer nanoseconds.
type jsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	PageSize            int            `json:"page_size"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
}

// parseJSON overlays cfg with values from the JSON file named by the -c or
// -config flag. If no file is named, nothing happens. Read or unmarshal
// errors panic; intended usage is defaults -> parseJSON -> parseFlags,
// where later stages override earlier ones.
func parseJSON(cfg *Config) {
	jsonConfigFile := flagx.JSONConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc jsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.PageSize > 0 {
		cfg.PageSize = jc.PageSize
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
}
