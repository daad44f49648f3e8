package client

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	BaseUrl  string `env:"SITETRACK_API_URL" envDefault:"http://localhost:8000"`
	CacheDir string `env:"SITETRACK_CACHE_DIR"`
}

// LoadConfig reads the client configuration from the environment. The cache
// dir defaults to the platform cache location.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("error parsing client config: %w", err)
	}

	if cfg.CacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return Config{}, fmt.Errorf("error resolving cache dir: %w", err)
		}
		cfg.CacheDir = filepath.Join(base, "sitetrack")
	}

	return cfg, nil
}
