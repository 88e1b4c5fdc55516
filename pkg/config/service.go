package config

import "time"

// TelegramConfig is read for deployment parity. No route uses the bot token.
type TelegramConfig struct {
	BotToken string `env:"TELEGRAM_BOT_TOKEN" env-default:""`
}

// DevConfig controls development-only surface.
type DevConfig struct {
	AppEnv            string `env:"APP_ENV" env-default:"development"`
	DummyTokenEnabled bool   `env:"DUMMY_TOKEN_ENABLED" env-default:"false"`
}

// DummyTokenRouteEnabled reports whether /dummy-token may be registered.
// Production always wins over the flag.
func (d DevConfig) DummyTokenRouteEnabled() bool {
	return d.DummyTokenEnabled && ParseEnvironment(d.AppEnv) != Production
}

// StoreConfig selects and tunes the persistence backend.
type StoreConfig struct {
	PersistenceType string `env:"PERSISTENCE_TYPE" env-default:"postgres"`
	SQLiteDSN       string `env:"SQLITE_DSN" env-default:"identity.db"`
	RoleCacheSize   int    `env:"ROLE_CACHE_SIZE" env-default:"256"`
	RoleCacheTTL    string `env:"ROLE_CACHE_TTL" env-default:"10m"`
}

var persistenceTypes = []string{"postgres", "sqlite", "inmem"}

// CacheTTL parses RoleCacheTTL (ISO 8601 or Go syntax).
func (s StoreConfig) CacheTTL() (time.Duration, error) {
	return parseDurationISO8601(s.RoleCacheTTL)
}

func (s StoreConfig) Validate() ValidationErrors {
	errs := CollectErrors(
		RequireOneOf("PERSISTENCE_TYPE", s.PersistenceType, persistenceTypes),
		RequirePositive("ROLE_CACHE_SIZE", s.RoleCacheSize),
	)
	if s.PersistenceType == "sqlite" {
		if verr := RequireNonEmpty("SQLITE_DSN", s.SQLiteDSN); verr != nil {
			errs = append(errs, *verr)
		}
	}
	ttl, err := s.CacheTTL()
	if err != nil {
		errs = append(errs, ValidationError{Field: "ROLE_CACHE_TTL", Message: err.Error()})
	} else if verr := RequirePositiveDuration("ROLE_CACHE_TTL", ttl); verr != nil {
		errs = append(errs, *verr)
	}
	return errs
}
