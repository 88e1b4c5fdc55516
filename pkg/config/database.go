package config

import (
	"fmt"
	"net/url"

	dbutils "github.com/tendant/db-utils/db"
)

// DatabaseConfig holds PostgreSQL connection settings.
// URL, when set, takes precedence over the individual fields.
type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL" env-default:""`
	Host     string `env:"DB_HOST" env-default:"localhost"`
	Port     uint16 `env:"DB_PORT" env-default:"5432"`
	User     string `env:"DB_USER" env-default:"postgres"`
	Password string `env:"DB_PASS" env-default:"postgres"`
	Database string `env:"DB_NAME" env-default:"identity_db"`
}

// ToDatabaseURL returns a postgres:// URL for pgx.
func (d DatabaseConfig) ToDatabaseURL() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// ToDbConfig converts the config to a db-utils DbConfig.
func (d DatabaseConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

func (d DatabaseConfig) Validate() ValidationErrors {
	if d.URL != "" {
		return nil
	}
	return CollectErrors(
		RequireNonEmpty("DB_HOST", d.Host),
		RequireNonEmpty("DB_NAME", d.Database),
		RequireNonEmpty("DB_USER", d.User),
	)
}
