// Package config loads service settings from defaults, an optional YAML
// file, STOREFRONT_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

const envPrefix = "STOREFRONT"

type HTTP struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type Database struct {
	URL string `mapstructure:"url"`
}

type Redis struct {
	URL string `mapstructure:"url"`
}

type JWT struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type Login struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Window      time.Duration `mapstructure:"window"`
}

type Cache struct {
	ClientsTTL  time.Duration `mapstructure:"clients_ttl"`
	ProductsTTL time.Duration `mapstructure:"products_ttl"`
	OrdersTTL   time.Duration `mapstructure:"orders_ttl"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type OIDC struct {
	IssuerURL    string `mapstructure:"issuer_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

// Enabled reports whether single sign-on is configured.
func (o OIDC) Enabled() bool {
	return o.IssuerURL != "" && o.ClientID != ""
}

// Config is the full service configuration.
type Config struct {
	Storage         string        `mapstructure:"storage"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	HTTP            HTTP          `mapstructure:"http"`
	Database        Database      `mapstructure:"database"`
	Redis           Redis         `mapstructure:"redis"`
	JWT             JWT           `mapstructure:"jwt"`
	Login           Login         `mapstructure:"login"`
	Cache           Cache         `mapstructure:"cache"`
	Log             Log           `mapstructure:"log"`
	OIDC            OIDC          `mapstructure:"oidc"`
}

var defaults = map[string]any{
	"storage":              StoragePostgres,
	"shutdown_timeout":     15 * time.Second,
	"http.addr":            ":8080",
	"http.request_timeout": 10 * time.Second,
	"redis.url":            "redis://localhost:6379/0",
	"jwt.issuer":           "storefront",
	"jwt.ttl":              15 * time.Minute,
	"login.max_attempts":   5,
	"login.window":         300 * time.Second,
	"cache.clients_ttl":    60 * time.Second,
	"cache.products_ttl":   300 * time.Second,
	"cache.orders_ttl":     60 * time.Second,
	"log.level":            "info",
	"log.pretty":           false,
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"storage":       "storage",
	"addr":          "http.addr",
	"database-url":  "database.url",
	"redis-url":     "redis.url",
	"jwt-secret":    "jwt.secret",
	"log-level":     "log.level",
	"log-pretty":    "log.pretty",
	"oidc-issuer":   "oidc.issuer_url",
	"oidc-client":   "oidc.client_id",
	"oidc-redirect": "oidc.redirect_url",
}

// AddFlags registers the configuration flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("storage", StoragePostgres, "storage backend: postgres or memory")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("redis-url", "", "Redis connection URL")
	fs.String("jwt-secret", "", "HMAC secret for access tokens")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.Bool("log-pretty", false, "human-readable console logs")
	fs.String("oidc-issuer", "", "OIDC issuer URL, enables SSO")
	fs.String("oidc-client", "", "OIDC client id")
	fs.String("oidc-redirect", "", "OIDC redirect URL")
}

// Load builds a Config. Flags that were not set on the command line do
// not override other sources. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about.
	for _, k := range []string{"database.url", "jwt.secret", "oidc.issuer_url", "oidc.client_id", "oidc.client_secret", "oidc.redirect_url"} {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", k, err)
		}
	}

	if fs != nil {
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate reports missing or inconsistent settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage {
	case StoragePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for postgres storage"))
		}
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for postgres storage"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q", c.Storage))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Login.MaxAttempts <= 0 {
		errs = append(errs, errors.New("login.max_attempts must be positive"))
	}
	if c.Login.Window <= 0 {
		errs = append(errs, errors.New("login.window must be positive"))
	}
	if c.OIDC.Enabled() && c.OIDC.RedirectURL == "" {
		errs = append(errs, errors.New("oidc.redirect_url is required when oidc is enabled"))
	}
	return errors.Join(errs...)
}
