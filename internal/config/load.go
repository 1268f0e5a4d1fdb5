package config

import (
	"strings"
	"time"

	"github.com/flowmesh/flowmesh/internal/platform/envutil"
)

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   10 << 20,
		},
		Store: StoreConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "flowmesh",
			SSLMode: "disable",
		},
		Throttle: ThrottleConfig{
			Addr: "localhost:6379",
			DB:   0,
		},
		Router: RouterConfig{
			PollInterval: Duration{Duration: time.Second},
		},
		Scout: ScoutConfig{
			ListKey:      "durable",
			PollInterval: Duration{Duration: time.Second},
			BatchSize:    50,
		},
	}
}

// Load reads the daemon configuration from the environment, falling back
// to development defaults for anything unset.
func Load() (*Config, error) {
	cfg := defaultConfig()

	cfg.Env = envutil.String("FLOWMESH_ENV", cfg.Env)
	cfg.HTTP.Addr = envutil.String("FLOWMESH_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.MaxRequestBytes = int64(envutil.Int("FLOWMESH_HTTP_MAX_REQUEST_BYTES", int(cfg.HTTP.MaxRequestBytes)))

	cfg.Store.Host = envutil.String("POSTGRES_HOST", cfg.Store.Host)
	cfg.Store.Port = envutil.String("POSTGRES_PORT", cfg.Store.Port)
	cfg.Store.User = envutil.String("POSTGRES_USER", cfg.Store.User)
	cfg.Store.Password = envutil.String("POSTGRES_PASSWORD", cfg.Store.Password)
	cfg.Store.Name = envutil.String("POSTGRES_DB", cfg.Store.Name)
	cfg.Store.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.Store.SSLMode)

	cfg.Throttle.Addr = envutil.String("FLOWMESH_REDIS_ADDR", cfg.Throttle.Addr)
	cfg.Throttle.Password = envutil.String("FLOWMESH_REDIS_PASSWORD", cfg.Throttle.Password)
	cfg.Throttle.DB = envutil.Int("FLOWMESH_REDIS_DB", cfg.Throttle.DB)

	cfg.Router.PollInterval = Duration{Duration: envutil.Duration("FLOWMESH_ROUTER_POLL_INTERVAL", cfg.Router.PollInterval.Duration)}

	cfg.Scout.ListKey = envutil.String("FLOWMESH_SCOUT_LIST_KEY", cfg.Scout.ListKey)
	cfg.Scout.PollInterval = Duration{Duration: envutil.Duration("FLOWMESH_SCOUT_POLL_INTERVAL", cfg.Scout.PollInterval.Duration)}
	cfg.Scout.BatchSize = envutil.Int("FLOWMESH_SCOUT_BATCH_SIZE", cfg.Scout.BatchSize)

	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 10 << 20
	}

	return cfg, nil
}
