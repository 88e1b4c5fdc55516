package main

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	pkgconfig "github.com/tendant/tg-identity/pkg/config"
)

const fallbackExpiry = 30 * 24 * time.Hour

// flagDefaults reads the service's JWT settings so tokens minted here match
// the ones the running service would issue.
func flagDefaults() (pkgconfig.JWTConfig, time.Duration, error) {
	var cfg pkgconfig.JWTConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fallbackExpiry, err
	}
	ttl, err := cfg.AccessTTL()
	if err != nil || ttl <= 0 {
		return cfg, fallbackExpiry, err
	}
	return cfg, ttl, nil
}
