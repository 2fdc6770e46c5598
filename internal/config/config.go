package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/BlackMission/tencentauth/internal/domain"
)

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Log     LogConfig      `yaml:"log"`
	Secrets SecretsConfig  `yaml:"secrets"`
	Tencent TencentConfig  `yaml:"tencent"`
	State   StateConfig    `yaml:"state"`
	Replay  ReplayConfig   `yaml:"replay"`
	Clients []ClientConfig `yaml:"clients"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port" env:"PORT"`
	Host            string        `yaml:"host" env:"HOST"`
	BaseURL         string        `yaml:"base_url" env:"BASE_URL"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	Env   string `yaml:"env" env:"LOG_ENV"`
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// SecretsConfig holds cryptographic key material.
type SecretsConfig struct {
	StateSigningKey       string `yaml:"state_signing_key" env:"STATE_SIGNING_KEY"`
	ExchangeEncryptionKey string `yaml:"exchange_encryption_key" env:"EXCHANGE_ENCRYPTION_KEY"`
}

// TencentConfig configures the QQ Connect handshake.
type TencentConfig struct {
	AppID     string `yaml:"app_id" env:"TENCENT_APP_ID"`
	AppSecret string `yaml:"app_secret" env:"TENCENT_APP_SECRET"`
	Caption   string `yaml:"caption" env:"TENCENT_CAPTION"`

	Scope        []string `yaml:"scope" env:"TENCENT_SCOPE" envSeparator:","`
	CallbackPath string   `yaml:"callback_path" env:"TENCENT_CALLBACK_PATH"`

	AuthorizationEndpoint string `yaml:"authorization_endpoint" env:"TENCENT_AUTHORIZATION_ENDPOINT"`
	TokenEndpoint         string `yaml:"token_endpoint" env:"TENCENT_TOKEN_ENDPOINT"`
	UserInfoEndpoint      string `yaml:"user_info_endpoint" env:"TENCENT_USER_INFO_ENDPOINT"`
	UserProfileEndpoint   string `yaml:"user_profile_endpoint" env:"TENCENT_USER_PROFILE_ENDPOINT"`

	BackchannelTimeout time.Duration `yaml:"backchannel_timeout" env:"TENCENT_BACKCHANNEL_TIMEOUT"`
	TokenMethod        string        `yaml:"token_method" env:"TENCENT_TOKEN_METHOD"`
	TokenPlacement     string        `yaml:"token_placement" env:"TENCENT_TOKEN_PLACEMENT"`

	// PinnedSPKI are base64 SHA-256 SubjectPublicKeyInfo hashes. When set,
	// every backchannel connection must present one of them.
	PinnedSPKI []string `yaml:"pinned_spki" env:"TENCENT_PINNED_SPKI" envSeparator:","`
}

// StateConfig selects the state sealer.
type StateConfig struct {
	Format string        `yaml:"format" env:"STATE_FORMAT"`
	TTL    time.Duration `yaml:"ttl" env:"STATE_TTL"`
}

// ReplayConfig selects where consumed state nonces are remembered.
type ReplayConfig struct {
	Driver        string `yaml:"driver" env:"REPLAY_DRIVER"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
	KeyPrefix     string `yaml:"key_prefix" env:"REPLAY_KEY_PREFIX"`
}

// ClientConfig holds a registered client app's settings.
type ClientConfig struct {
	ID               string   `yaml:"id"`
	Name             string   `yaml:"name"`
	APIKey           string   `yaml:"api_key"`
	AllowedCallbacks []string `yaml:"allowed_callbacks"`
}

// State formats.
const (
	StateFormatAEAD = "aead"
	StateFormatHMAC = "hmac"
	StateFormatJWT  = "jwt"
)

// Replay drivers.
const (
	ReplayNone   = "none"
	ReplayMemory = "memory"
	ReplayRedis  = "redis"
)

// Defaults returns the configuration used before any file or env override.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Env: "dev", Level: "info"},
		Tencent: TencentConfig{
			TokenMethod:    "POST",
			TokenPlacement: "query",
		},
		State:  StateConfig{Format: StateFormatAEAD, TTL: 10 * time.Minute},
		Replay: ReplayConfig{Driver: ReplayMemory, KeyPrefix: "tencentauth:state:"},
	}
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%w: loading %s: %v", domain.ErrConfiguration, f, err)
		}
	}
	return nil
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then environment variables, then
// CLIENT_<ID>_* client discovery.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrConfiguration, path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrConfiguration, path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	cfg.Clients = mergeClients(cfg.Clients, discoverClients())

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv reads configuration purely from environment variables.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

// mergeClients overlays env-discovered clients on file clients by ID.
func mergeClients(file, fromEnv []ClientConfig) []ClientConfig {
	byID := make(map[string]int, len(file))
	out := append([]ClientConfig(nil), file...)
	for i, c := range out {
		byID[c.ID] = i
	}
	for _, c := range fromEnv {
		if i, ok := byID[c.ID]; ok {
			out[i] = c
			continue
		}
		byID[c.ID] = len(out)
		out = append(out, c)
	}
	return out
}

// discoverClients scans environment variables for CLIENT_<ID>_API_KEY patterns
// and builds client configs from related env vars.
func discoverClients() []ClientConfig {
	type clientEntry struct {
		envPrefix string // e.g. "CLIENT_WEBSITE"
		id        string // e.g. "website"
	}

	var entries []clientEntry
	seen := make(map[string]bool)

	for _, kv := range os.Environ() {
		key, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if !strings.HasPrefix(key, "CLIENT_") || !strings.HasSuffix(key, "_API_KEY") {
			continue
		}

		// CLIENT_WEBSITE_API_KEY → CLIENT_WEBSITE
		prefix := strings.TrimSuffix(key, "_API_KEY")
		if prefix == "CLIENT" {
			continue
		}

		idPart := strings.TrimPrefix(prefix, "CLIENT_")
		id := strings.ToLower(strings.ReplaceAll(idPart, "_", "-"))

		if seen[id] {
			continue
		}
		seen[id] = true
		entries = append(entries, clientEntry{envPrefix: prefix, id: id})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].id < entries[j].id
	})

	clients := make([]ClientConfig, 0, len(entries))
	for _, e := range entries {
		apiKey := os.Getenv(e.envPrefix + "_API_KEY")
		if apiKey == "" {
			continue
		}

		name := os.Getenv(e.envPrefix + "_NAME")
		if name == "" {
			name = e.id
		}

		clients = append(clients, ClientConfig{
			ID:               e.id,
			Name:             name,
			APIKey:           apiKey,
			AllowedCallbacks: splitComma(os.Getenv(e.envPrefix + "_ALLOWED_CALLBACKS")),
		})
	}

	return clients
}

func validate(cfg *Config) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		add("PORT %d is out of range", cfg.Server.Port)
	}
	if u, err := url.Parse(cfg.Server.BaseURL); cfg.Server.BaseURL == "" || err != nil || !u.IsAbs() || u.Host == "" {
		add("BASE_URL must be an absolute URL")
	}
	if cfg.Secrets.StateSigningKey == "" {
		add("STATE_SIGNING_KEY is required")
	}
	if n := len(cfg.Secrets.ExchangeEncryptionKey); n != 32 {
		add("EXCHANGE_ENCRYPTION_KEY must be exactly 32 bytes, got %d", n)
	}
	if cfg.Tencent.AppID == "" {
		add("TENCENT_APP_ID is required")
	}
	if cfg.Tencent.AppSecret == "" {
		add("TENCENT_APP_SECRET is required")
	}

	switch cfg.State.Format {
	case StateFormatAEAD, StateFormatHMAC, StateFormatJWT:
	default:
		add("STATE_FORMAT %q is not one of aead, hmac, jwt", cfg.State.Format)
	}
	if cfg.State.TTL <= 0 {
		add("STATE_TTL must be positive")
	}

	switch cfg.Replay.Driver {
	case ReplayNone, ReplayMemory:
	case ReplayRedis:
		if cfg.Replay.RedisAddr == "" {
			add("REDIS_ADDR is required when REPLAY_DRIVER=redis")
		}
	default:
		add("REPLAY_DRIVER %q is not one of none, memory, redis", cfg.Replay.Driver)
	}

	if len(cfg.Clients) == 0 {
		add("at least one client must be configured (CLIENT_<ID>_API_KEY)")
	}
	for _, c := range cfg.Clients {
		if c.APIKey == "" {
			add("client %q API_KEY is required", c.ID)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
