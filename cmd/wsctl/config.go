package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/vango-dev/wsession/pkg/client"
	"github.com/vango-dev/wsession/pkg/message"
)

// fileConfig is the TOML shape of a wsctl config file.
//
// Example:
//
//	endpoint = "ws://localhost:8080/ws"
//	subprotocols = ["chat.v1"]
//	max_send_bytes = 4096
//	max_receive_bytes = 4096
//	ping_message = "ping"
//	ping_interval = "30s"
//	ping_requires_pong_first = true
//	debug = false
//
//	[headers]
//	Authorization = "Bearer ..."
type fileConfig struct {
	Endpoint              string            `toml:"endpoint"`
	Subprotocols          []string          `toml:"subprotocols"`
	Headers               map[string]string `toml:"headers"`
	MaxSendBytes          int               `toml:"max_send_bytes"`
	MaxReceiveBytes       int               `toml:"max_receive_bytes"`
	PingMessage           string            `toml:"ping_message"`
	PingInterval          string            `toml:"ping_interval"`
	PingRequiresPongFirst bool              `toml:"ping_requires_pong_first"`
	Debug                 bool              `toml:"debug"`
}

// loadConfig builds a client config from an optional TOML file.
func loadConfig(path string) (*client.Config, error) {
	cfg := client.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Endpoint = fc.Endpoint
	cfg.Subprotocols = fc.Subprotocols
	cfg.DebugLogging = fc.Debug

	if len(fc.Headers) > 0 {
		cfg.Headers = http.Header{}
		for k, v := range fc.Headers {
			cfg.Headers.Set(k, v)
		}
	}
	if fc.MaxSendBytes > 0 {
		cfg.MaxSendBytes = fc.MaxSendBytes
	}
	if fc.MaxReceiveBytes > 0 {
		cfg.MaxReceiveBytes = fc.MaxReceiveBytes
	}
	if fc.PingMessage != "" && fc.PingInterval != "" {
		interval, err := time.ParseDuration(fc.PingInterval)
		if err != nil {
			return nil, fmt.Errorf("parse ping_interval: %w", err)
		}
		cfg.WithPing(message.NewText(fc.PingMessage), interval)
		cfg.PingRequiresPongFirst = fc.PingRequiresPongFirst
	}

	return cfg, nil
}
