package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the config file costbasis looks for by default.
const FileName = "costbasis.yaml"

// Config represents the top-level costbasis.yaml configuration.
type Config struct {
	DefaultVenue   string      `yaml:"default_venue"`
	AirdropSymbols []string    `yaml:"airdrop_symbols"`
	Price          PriceConfig `yaml:"price"`
	Log            LogConfig   `yaml:"log"`
}

// PriceConfig controls the historical price source.
type PriceConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKeyEnv         string        `yaml:"api_key_env"` // name of the env var holding the key
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
	CachePath         string        `yaml:"cache_path"` // empty disables the persistent cache
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Load reads a costbasis.yaml file from disk. Keys missing from the file
// keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// APIKey returns the price API key from the environment named by
// Price.APIKeyEnv, loading envFiles (default ".env") first. Missing env
// files are not an error; variables already set are not overridden.
func (c *Config) APIKey(envFiles ...string) string {
	if c.Price.APIKeyEnv == "" {
		return ""
	}
	// godotenv.Load fails as a whole when any file is missing.
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}
	return os.Getenv(c.Price.APIKeyEnv)
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		DefaultVenue:   "cccagg",
		AirdropSymbols: append([]string(nil), defaultAirdropSymbols...),
		Price: PriceConfig{
			BaseURL:           "https://min-api.cryptocompare.com",
			APIKeyEnv:         "CRYPTOCOMPARE_API_KEY",
			RequestsPerSecond: 5,
			Timeout:           20 * time.Second,
			CachePath:         ".costbasis-cache/prices.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// defaultAirdropSymbols are tokens commonly received for free. Their
// deposits carry a zero cost basis.
var defaultAirdropSymbols = []string{
	"AIMS", "AMM", "ARCONA", "BEAUTY", "blockwel", "BNB", "BOBx", "BULLEON",
	"CAN", "CANDY", "CAT", "CGW", "CLN", "cryptics", "DATA", "ELEC", "ERC20",
	"EMO", "ETP", "FIFA.win", "FIFAmini", "FREE", "Googol", "HEALP", "HKY",
	"HMC", "HSC", "HuobiAir", "HUR", "IBA", "INSP", "JOT", "LPT", "OCEAN",
	"OCN", "Only", "PCBC", "PMOD", "R", "safe.ad", "SCB", "SNGX", "SSS", "SW",
	"TOPB", "TOPBTC", "TRX", "UBT", "VENT", "VIN", "VIU", "VKT", "VOS.AI",
	"WIN", "WLM", "WOLK", "XNN", "ZNT",
}
