package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagDefaults(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    time.Duration
		wantErr bool
	}{
		{name: "defaults", want: 30 * 24 * time.Hour},
		{name: "minutes", env: map[string]string{"AUTH_JWT_ACCESS_TOKEN_EXPIRE_MINUTES": "90"}, want: 90 * time.Minute},
		{name: "iso expiry wins", env: map[string]string{"AUTH_JWT_ACCESS_TOKEN_EXPIRE_MINUTES": "90", "AUTH_JWT_ACCESS_TOKEN_EXPIRY": "PT15M"}, want: 15 * time.Minute},
		{name: "bad expiry", env: map[string]string{"AUTH_JWT_ACCESS_TOKEN_EXPIRY": "later"}, want: fallbackExpiry, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, got, err := flagDefaults()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlagDefaultsSigningSettings(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET_KEY", "s3cret")
	t.Setenv("AUTH_JWT_ALGORITHM", "HS512")

	cfg, _, err := flagDefaults()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.SecretKey)
	assert.Equal(t, "HS512", cfg.Algorithm)
}
