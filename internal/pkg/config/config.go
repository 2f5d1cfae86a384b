package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultTenant is the merchant profile used when a request does not name one.
const DefaultTenant = "default"

type Config struct {
	Server    ServerConfig                         `koanf:"server"`
	Logger    LoggerConfig                         `koanf:"logger"`
	HTTP      HTTPConfig                           `koanf:"http"`
	Events    EventsConfig                         `koanf:"events"`
	Storage   StorageConfig                        `koanf:"storage"`
	Telemetry TelemetryConfig                      `koanf:"telemetry"`
	Providers map[string]map[string]ProviderConfig `koanf:"providers"` // driver -> tenant -> merchant profile
	Payload   map[string]map[string]any            `koanf:"payload"`   // driver -> default payload fields

	k *koanf.Koanf
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	// APIKeys guard the /v1 routes. Empty leaves them open.
	APIKeys []APIKeyConfig `koanf:"api_keys"`
}

// APIKeyConfig names one caller of the operator API. Only the SHA-256 hex digest of
// the key is stored.
type APIKeyConfig struct {
	Name    string `koanf:"name"`
	KeyHash string `koanf:"key_hash"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

type HTTPConfig struct {
	Timeout        time.Duration `koanf:"timeout"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	// DenyPrivateNetworks blocks outbound calls to loopback and private ranges.
	DenyPrivateNetworks bool `koanf:"deny_private_networks"`
}

type EventsConfig struct {
	FailurePolicy string `koanf:"failure_policy"` // isolate, propagate
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory, none
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

// ProviderConfig is one merchant profile for a payment driver.
type ProviderConfig struct {
	MchID        string `koanf:"mch_id"`
	MchSecretKey string `koanf:"mch_secret_key"`
	MPAppID      string `koanf:"mp_app_id"`
	MiniAppID    string `koanf:"mini_app_id"`
	AppID        string `koanf:"app_id"`
	AppSecretKey string `koanf:"app_secret_key"`
	NotifyURL    string `koanf:"notify_url"`
	ReturnURL    string `koanf:"return_url"`
	BaseURL      string `koanf:"base_url"` // Custom API endpoint
	Mode         string `koanf:"mode"`     // normal, sandbox
}

// AppIDFor returns the application ID selected by the `_type` request parameter:
// "mini" and "app" pick the mini-program and mobile app IDs, anything else the
// official-account ID.
func (p ProviderConfig) AppIDFor(kind string) string {
	switch kind {
	case "mini":
		return p.MiniAppID
	case "app":
		return p.AppID
	default:
		return p.MPAppID
	}
}

// Provider returns the merchant profile for driver and tenant. An empty tenant selects
// DefaultTenant.
func (c *Config) Provider(driver, tenant string) (ProviderConfig, bool) {
	if tenant == "" {
		tenant = DefaultTenant
	}
	tenants, ok := c.Providers[driver]
	if !ok {
		return ProviderConfig{}, false
	}
	p, ok := tenants[tenant]
	return p, ok
}

// PayloadDefaults returns the configured default payload fields for driver.
func (c *Config) PayloadDefaults(driver string) map[string]any {
	return c.Payload[driver]
}

// Get returns the raw value at a dotted path, or nil when the config was not loaded
// from a source.
func (c *Config) Get(path string) any {
	if c.k == nil {
		return nil
	}
	return c.k.Get(path)
}

// String returns the value at a dotted path as a string.
func (c *Config) String(path string) string {
	if c.k == nil {
		return ""
	}
	return c.k.String(path)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (config.yaml when empty), overlays PAY_ environment variables and
// applies defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// PAY_PROVIDERS__WECHAT__DEFAULT__MCH_ID -> providers.wechat.default.mch_id
	if err := k.Load(env.Provider("PAY_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "PAY_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("server.request_timeout") {
		k.Set("server.request_timeout", "30s")
	}
	if !k.Exists("logger.level") {
		k.Set("logger.level", "info")
	}
	if !k.Exists("logger.format") {
		k.Set("logger.format", "json")
	}
	if !k.Exists("http.timeout") {
		k.Set("http.timeout", "5s")
	}
	if !k.Exists("http.connect_timeout") {
		k.Set("http.connect_timeout", "3s")
	}
	if !k.Exists("events.failure_policy") {
		k.Set("events.failure_policy", "isolate")
	}
	if !k.Exists("storage.type") {
		k.Set("storage.type", "memory")
	}
	if !k.Exists("telemetry.service_name") {
		k.Set("telemetry.service_name", "paygate")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	cfg.k = k

	// Substitute environment variables in merchant secrets and IDs
	for driver, tenants := range cfg.Providers {
		for tenant, p := range tenants {
			p.MchID = substituteEnvVars(p.MchID)
			p.MchSecretKey = substituteEnvVars(p.MchSecretKey)
			p.AppSecretKey = substituteEnvVars(p.AppSecretKey)
			cfg.Providers[driver][tenant] = p
		}
	}

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
