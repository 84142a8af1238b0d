// Package config loads storefront settings from environment variables and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "STOREFRONT_CONFIG_FILE"
	configFlagName    = "config"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	BackendURL    string `mapstructure:"backend_url"`
	BackendAPIKey string `mapstructure:"backend_api_key"`

	HTTPPort        string        `mapstructure:"http_port"`
	GRPCPort        string        `mapstructure:"grpc_port"`
	LogLevel        string        `mapstructure:"log_level"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	SessionKey     string        `mapstructure:"session_key"`
	CookieSecure   bool          `mapstructure:"cookie_secure"`
	SessionIdleTTL time.Duration `mapstructure:"session_idle_ttl"`
	AuthRateLimit  float64       `mapstructure:"auth_rate_limit"`

	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDBName   string `mapstructure:"mongo_db_name"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`

	OutboxDriver string   `mapstructure:"outbox_driver"`
	OutboxDSN    string   `mapstructure:"outbox_dsn"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
}

var defaults = map[string]any{
	"backend_url":      "",
	"backend_api_key":  "",
	"http_port":        "8080",
	"grpc_port":        "9090",
	"log_level":        "info",
	"request_timeout":  10 * time.Second,
	"shutdown_timeout": 15 * time.Second,
	"session_key":      "",
	"cookie_secure":    false,
	"session_idle_ttl": 30 * time.Minute,
	"auth_rate_limit":  5.0,
	"mongo_uri":        "mongodb://localhost:27017",
	"mongo_db_name":    "storefront",
	"redis_addr":       "localhost:6379",
	"redis_password":   "",
	"outbox_driver":    "sqlite",
	"outbox_dsn":       "file:outbox.db",
	"kafka_brokers":    []string{},
	"kafka_topic":      "storefront-orders",
}

// RegisterFlags adds the --config flag to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(configFlagName, "", "config file (yaml, json or toml)")
}

// Load reads the config file named by --config or STOREFRONT_CONFIG_FILE, if
// any, then lets environment variables such as BACKEND_URL override it.
// fs may be nil. Callers that talk to the backend must also call Validate.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if path := configFile(fs); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers)
	return cfg, nil
}

// Validate reports every required setting that is empty.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.BackendURL) == "" {
		missing = append(missing, "BACKEND_URL")
	}
	if strings.TrimSpace(c.BackendAPIKey) == "" {
		missing = append(missing, "BACKEND_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}
	return nil
}

func (c Config) HTTPAddr() string {
	return net.JoinHostPort("", c.HTTPPort)
}

func (c Config) GRPCAddr() string {
	return net.JoinHostPort("", c.GRPCPort)
}

func configFile(fs *pflag.FlagSet) string {
	if env, ok := os.LookupEnv(configFileEnvName); ok {
		return env
	}
	if fs == nil {
		return ""
	}
	path, err := fs.GetString(configFlagName)
	if err != nil {
		return ""
	}
	return path
}

func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
