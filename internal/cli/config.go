package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of the environment variables read by the CLI (TRANSITO_BACKEND, ...).
const EnvPrefix = "TRANSITO"

// Backend names accepted by --backend.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
)

// Backends lists every supported backend.
var Backends = []string{BackendMemory, BackendFile, BackendSQLite, BackendPostgres, BackendRedis, BackendMongo}

// Config is the resolved CLI configuration: flags, then TRANSITO_* variables, then the config file.
type Config struct {
	Definition string `mapstructure:"definition"`
	Backend    string `mapstructure:"backend"`
	// DSN is a file path (file, sqlite), a connection string (postgres) or a URL (redis, mongo).
	DSN        string        `mapstructure:"dsn"`
	Table      string        `mapstructure:"table"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Prefix     string        `mapstructure:"prefix"`
	TTL        time.Duration `mapstructure:"ttl"`
	Unhandled  string        `mapstructure:"unhandled"`
	LogLevel   string        `mapstructure:"log-level"`
	Addr       string        `mapstructure:"addr"`
}

// Defaults are the values used when neither a flag, a variable nor the config file sets a key.
var Defaults = map[string]any{
	"definition": "machine.yaml",
	"backend":    BackendMemory,
	"dsn":        "",
	"table":      "actors",
	"database":   "transito",
	"collection": "actors",
	"prefix":     "",
	"ttl":        time.Duration(0),
	"unhandled":  "ignore",
	"log-level":  "warn",
	"addr":       ":8080",
}

// NewViper returns a viper instance reading TRANSITO_* variables and, when present,
// the given config file or ./transito.yaml.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// Registered keys are what lets AutomaticEnv reach Unmarshal.
	for key, value := range Defaults {
		v.SetDefault(key, value)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("transito")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing || configFile != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// LoadConfig resolves Config from v.
func LoadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Backend = strings.ToLower(cfg.Backend)
	for _, b := range Backends {
		if cfg.Backend == b {
			return cfg, nil
		}
	}
	return Config{}, fmt.Errorf("unknown backend %q (want one of %s)", cfg.Backend, strings.Join(Backends, ", "))
}
