package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Configuration keys, also used as flag names
const (
	KeyDebug         = "debug"
	KeyDataDir       = "data-dir"
	KeyIntentBackend = "intent-backend"
	KeyIntentURL     = "intent-url"
	KeyIntentTimeout = "intent-timeout"
	KeyRedisAddr     = "redis-addr"
	KeyRedisPassword = "redis-password"
	KeyRedisDB       = "redis-db"
	KeyBridge        = "bridge"
	KeyTopology      = "topology"
	KeyMetricsAddr   = "metrics-addr"
)

// Intent backends
const (
	BackendREST  = "rest"
	BackendRedis = "redis"
)

// Config holds the process configuration
type Config struct {
	Debug         bool
	DataDir       string
	IntentBackend string
	IntentURL     string
	IntentTimeout time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Bridge        string
	Topology      string
	MetricsAddr   string
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyDataDir, "/data")
	v.SetDefault(KeyIntentBackend, BackendREST)
	v.SetDefault(KeyIntentURL, "http://127.0.0.1:8080")
	v.SetDefault(KeyIntentTimeout, 5*time.Second)
	v.SetDefault(KeyRedisAddr, "127.0.0.1:6379")
	v.SetDefault(KeyRedisDB, 0)
	v.SetDefault(KeyBridge, "br-ovs")
}

// Load reads the configuration out of v
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Debug:         v.GetBool(KeyDebug),
		DataDir:       v.GetString(KeyDataDir),
		IntentBackend: v.GetString(KeyIntentBackend),
		IntentURL:     v.GetString(KeyIntentURL),
		IntentTimeout: v.GetDuration(KeyIntentTimeout),
		RedisAddr:     v.GetString(KeyRedisAddr),
		RedisPassword: v.GetString(KeyRedisPassword),
		RedisDB:       v.GetInt(KeyRedisDB),
		Bridge:        v.GetString(KeyBridge),
		Topology:      v.GetString(KeyTopology),
		MetricsAddr:   v.GetString(KeyMetricsAddr),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	switch c.IntentBackend {
	case BackendREST:
		if c.IntentURL == "" {
			return fmt.Errorf("%s is required for the %s backend", KeyIntentURL, BackendREST)
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%s is required for the %s backend", KeyRedisAddr, BackendRedis)
		}
	default:
		return fmt.Errorf("unknown intent backend %q (expected %s or %s)", c.IntentBackend, BackendREST, BackendRedis)
	}

	if c.IntentTimeout < 0 {
		return fmt.Errorf("%s must not be negative", KeyIntentTimeout)
	}
	return nil
}
