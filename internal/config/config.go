// Package config is the daemon-level configuration: store DSN, quorum
// throttle settings, scout/router poll cadence, and the HTTP surface's
// listen address. Grounded on the same default-struct-then-env-override
// shape used by the inference subsystem's own config package, adapted
// from a JSON-file-plus-env load to an env-only one since the daemon has
// no per-request model routing table to serialize.
package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes"`
}

type StoreConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
	SSLMode  string `json:"ssl_mode"`
}

type ThrottleConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type RouterConfig struct {
	PollInterval Duration `json:"poll_interval"`
}

type ScoutConfig struct {
	ListKey      string   `json:"list_key"`
	PollInterval Duration `json:"poll_interval"`
	BatchSize    int      `json:"batch_size"`
}

// Config is the full set of settings one engine instance boots with.
type Config struct {
	Env      string         `json:"env"`
	HTTP     HTTPConfig     `json:"http"`
	Store    StoreConfig    `json:"store"`
	Throttle ThrottleConfig `json:"throttle"`
	Router   RouterConfig   `json:"router"`
	Scout    ScoutConfig    `json:"scout"`
}
