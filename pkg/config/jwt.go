package config

import (
	"fmt"
	"time"

	"github.com/sosodev/duration"
)

// JWTConfig holds access token signing settings.
type JWTConfig struct {
	SecretKey           string `env:"AUTH_JWT_SECRET_KEY" env-default:""`
	Algorithm           string `env:"AUTH_JWT_ALGORITHM" env-default:"HS256"`
	AccessExpireMinutes int    `env:"AUTH_JWT_ACCESS_TOKEN_EXPIRE_MINUTES" env-default:"43200"`
	// AccessTokenExpiry overrides AccessExpireMinutes when set. ISO 8601 ("P30D")
	// or Go duration ("720h") syntax.
	AccessTokenExpiry string `env:"AUTH_JWT_ACCESS_TOKEN_EXPIRY" env-default:""`
}

var supportedAlgorithms = []string{"HS256", "HS384", "HS512"}

// AccessTTL returns the lifetime of issued access tokens.
func (j JWTConfig) AccessTTL() (time.Duration, error) {
	if j.AccessTokenExpiry != "" {
		return parseDurationISO8601(j.AccessTokenExpiry)
	}
	return time.Duration(j.AccessExpireMinutes) * time.Minute, nil
}

func (j JWTConfig) Validate() ValidationErrors {
	errs := CollectErrors(
		RequireNonEmpty("AUTH_JWT_SECRET_KEY", j.SecretKey),
		RequireOneOf("AUTH_JWT_ALGORITHM", j.Algorithm, supportedAlgorithms),
	)
	ttl, err := j.AccessTTL()
	if err != nil {
		errs = append(errs, ValidationError{Field: "AUTH_JWT_ACCESS_TOKEN_EXPIRY", Message: err.Error()})
	} else if verr := RequirePositiveDuration("AUTH_JWT_ACCESS_TOKEN_EXPIRE_MINUTES", ttl); verr != nil {
		errs = append(errs, *verr)
	}
	return errs
}

// parseDurationISO8601 tries ISO 8601 first, then Go duration syntax.
func parseDurationISO8601(s string) (time.Duration, error) {
	if d, err := duration.Parse(s); err == nil {
		return d.ToTimeDuration(), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}
