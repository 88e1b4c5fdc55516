package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/tg-identity/pkg/auth"
	pkgconfig "github.com/tendant/tg-identity/pkg/config"
	"github.com/tendant/tg-identity/pkg/iam"
	iamapi "github.com/tendant/tg-identity/pkg/iam/api"
	"github.com/tendant/tg-identity/pkg/metrics"
	"github.com/tendant/tg-identity/pkg/role"
	roleapi "github.com/tendant/tg-identity/pkg/role/api"
	"github.com/tendant/tg-identity/pkg/router"
	"github.com/tendant/tg-identity/pkg/store"
	"github.com/tendant/tg-identity/pkg/tokengenerator"
)

type Config struct {
	AppConfig      app.AppConfig
	DatabaseConfig pkgconfig.DatabaseConfig
	JWTConfig      pkgconfig.JWTConfig
	PrefixConfig   pkgconfig.PrefixConfig
	StoreConfig    pkgconfig.StoreConfig
	DevConfig      pkgconfig.DevConfig
	TelegramConfig pkgconfig.TelegramConfig
}

// loadEnvFile loads a .env file from the working directory or next to the
// executable. Variables already set in the environment win.
func loadEnvFile() {
	candidates := []string{".env"}
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), ".env"))
	}

	for _, envFile := range candidates {
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			slog.Error("Failed to load .env file", "error", err, "path", envFile)
			return
		}
		slog.Info("Configuration loaded from .env file", "path", envFile)
		return
	}
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	config := Config{}
	if err := cleanenv.ReadEnv(&config); err != nil {
		slog.Error("Failed reading configuration", "err", err)
		os.Exit(-1)
	}

	validators := []pkgconfig.Validator{
		config.JWTConfig.Validate,
		config.PrefixConfig.Validate,
		config.StoreConfig.Validate,
	}
	if config.StoreConfig.PersistenceType == "postgres" {
		validators = append(validators, config.DatabaseConfig.Validate)
	}
	if err := pkgconfig.Validate(validators...); err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(-1)
	}
	slog.Info("API endpoint prefixes configured", "users", config.PrefixConfig.Users,
		"roles", config.PrefixConfig.Roles, "auth", config.PrefixConfig.Auth)

	ctx := context.Background()
	st, err := store.New(ctx, store.Config{
		PersistenceType: config.StoreConfig.PersistenceType,
		DatabaseURL:     config.DatabaseConfig.URL,
		Db:              config.DatabaseConfig.ToDbConfig(),
		SQLiteDSN:       config.StoreConfig.SQLiteDSN,
	})
	if err != nil {
		slog.Error("Failed opening store", "persistence", config.StoreConfig.PersistenceType,
			"host", config.DatabaseConfig.Host, "db", config.DatabaseConfig.Database, "err", err)
		os.Exit(-1)
	}
	defer st.Close()

	// Both validated above.
	accessTTL, _ := config.JWTConfig.AccessTTL()
	cacheTTL, _ := config.StoreConfig.CacheTTL()

	m := metrics.New()

	userService := iam.NewUserService(st)
	roleService := role.NewRoleService(st,
		role.WithCache(config.StoreConfig.RoleCacheSize, cacheTTL),
		role.WithCacheObserver(m.RoleCacheLookup),
	)

	routes := router.Config{
		PrefixConfig: config.PrefixConfig,
		UserHandle:   iamapi.NewHandle(userService),
		RoleHandle:   roleapi.NewHandle(roleService),
		Metrics:      m,
		Store:        st,
	}
	if config.DevConfig.DummyTokenRouteEnabled() {
		issuer := tokengenerator.NewIssuer(config.JWTConfig.SecretKey, accessTTL,
			tokengenerator.WithAlgorithm(config.JWTConfig.Algorithm))
		routes.AuthHandle = auth.NewHandle(userService, issuer, auth.WithIssueObserver(m.TokenIssued))
	} else if config.DevConfig.DummyTokenEnabled {
		slog.Warn("DUMMY_TOKEN_ENABLED ignored in production", "app_env", config.DevConfig.AppEnv)
	}

	server := app.DefaultApp()
	router.SetupRoutes(server.R, routes)

	server.Run()
}
