package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

//go:embed config.example.toml
var exampleConf []byte

// EnvPrefix prefixes every environment override, e.g. MIXTAPE_API_BASE_URL.
const EnvPrefix = "MIXTAPE"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Backend  BackendConfig  `toml:"backend"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// BackendConfig points at the auth and playlist backend.
type BackendConfig struct {
	BaseURL   string   `toml:"base_url"`
	Timeout   Duration `toml:"timeout"`
	Cache     string   `toml:"cache"`
	CacheTTL  Duration `toml:"cache_ttl"`
	ValkeyURL string   `toml:"valkey_url"`
}

// CatalogConfig contains Spotify client credentials and search tuning.
type CatalogConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	TokenURL     string   `toml:"token_url"`
	APIURL       string   `toml:"api_url"`
	SearchLimit  int      `toml:"search_limit"`
	Debounce     Duration `toml:"debounce"`
	RateLimit    float64  `toml:"rate_limit"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local reference backend.
type ServerConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	JWTSecret string `toml:"jwt_secret"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig controls log level and the TUI log file.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Duration is a [time.Duration] that decodes from TOML strings like "400ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes cfg as TOML and writes it to path, replacing any existing file.
func SaveConfig(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// LoadDotEnv loads variables from the given .env files into the process environment.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values from MIXTAPE_* environment variables. Unset variables leave values unchanged.
func (c *Config) ApplyEnv() error {
	var env struct {
		APIBaseURL          string `envconfig:"API_BASE_URL"`
		SpotifyClientID     string `envconfig:"SPOTIFY_CLIENT_ID"`
		SpotifyClientSecret string `envconfig:"SPOTIFY_CLIENT_SECRET"`
		Cache               string `envconfig:"CACHE"`
		ValkeyURL           string `envconfig:"VALKEY_URL"`
		DatabasePath        string `envconfig:"DATABASE_PATH"`
		JWTSecret           string `envconfig:"JWT_SECRET"`
		ServerPort          int    `envconfig:"SERVER_PORT"`
		LogLevel            string `envconfig:"LOG_LEVEL"`
	}

	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	setIf := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setIf(&c.Backend.BaseURL, env.APIBaseURL)
	setIf(&c.Catalog.ClientID, env.SpotifyClientID)
	setIf(&c.Catalog.ClientSecret, env.SpotifyClientSecret)
	setIf(&c.Backend.Cache, env.Cache)
	setIf(&c.Backend.ValkeyURL, env.ValkeyURL)
	setIf(&c.Database.Path, env.DatabasePath)
	setIf(&c.Server.JWTSecret, env.JWTSecret)
	setIf(&c.Log.Level, env.LogLevel)
	if env.ServerPort > 0 {
		c.Server.Port = env.ServerPort
	}
	return nil
}

// Validate reports missing or malformed client settings.
func (c *Config) Validate() error {
	var problems []string

	if c.Backend.BaseURL == "" {
		problems = append(problems, "backend.base_url is required")
	} else if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("backend.base_url %q is not an absolute URL", c.Backend.BaseURL))
	}

	switch c.Backend.Cache {
	case "", "memory", "none", "valkey":
	default:
		problems = append(problems, fmt.Sprintf("backend.cache %q must be memory, valkey or none", c.Backend.Cache))
	}

	if c.Catalog.ClientID == "" || c.Catalog.ClientSecret == "" {
		problems = append(problems, "catalog.client_id and catalog.client_secret are required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
