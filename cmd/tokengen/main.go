package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tendant/tg-identity/pkg/tokengenerator"
)

func main() {
	jwtConfig, defaultExpiry, err := flagDefaults()
	if err != nil {
		slog.Warn("Ignoring JWT settings from environment", "err", err, "expiry", defaultExpiry)
	}

	secret := flag.String("secret", jwtConfig.SecretKey, "Secret key for signing the token")
	alg := flag.String("alg", jwtConfig.Algorithm, "Signing algorithm (HS256, HS384, HS512)")
	userID := flag.Int64("user-id", 0, "Internal user id placed in the sub claim")
	expiry := flag.Duration("expiry", defaultExpiry, "Token expiry duration (e.g., 30m, 1h, 720h)")
	outputFormat := flag.String("format", "compact", "Output format: compact, full, or debug")
	flag.Parse()

	if *userID <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -user-id must be a positive integer")
		os.Exit(2)
	}

	issuer := tokengenerator.NewIssuer(*secret, *expiry, tokengenerator.WithAlgorithm(*alg))
	token, err := issuer.Issue(*userID)
	if err != nil {
		slog.Error("Failed to generate token", "err", err)
		fmt.Fprintf(os.Stderr, "Error: Failed to generate token: %v\n", err)
		os.Exit(1)
	}
	expiresAt := time.Now().Add(issuer.Expiry())

	switch *outputFormat {
	case "compact":
		fmt.Println(token.AccessToken)
	case "full":
		fmt.Printf("Token: %s\nType: %s\nExpires: %s\n", token.AccessToken, token.TokenType, expiresAt.Format(time.RFC3339))
	case "debug":
		parsed, err := jwt.Parse(token.AccessToken, func(t *jwt.Token) (interface{}, error) {
			return []byte(*secret), nil
		}, jwt.WithValidMethods([]string{*alg}))
		if err != nil {
			slog.Error("Failed to parse generated token", "err", err)
			fmt.Fprintf(os.Stderr, "Error: Failed to parse generated token: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("=== Token Information ===\n")
		fmt.Printf("Token: %s\n\n", token.AccessToken)
		fmt.Printf("=== Token Header ===\n")
		headerJSON, _ := json.MarshalIndent(parsed.Header, "", "  ")
		fmt.Printf("%s\n\n", headerJSON)
		fmt.Printf("=== Token Claims ===\n")
		claimsJSON, _ := json.MarshalIndent(parsed.Claims, "", "  ")
		fmt.Printf("%s\n\n", claimsJSON)
		fmt.Printf("Expires: %s\n", expiresAt.Format(time.RFC3339))
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown output format: %s\n", *outputFormat)
		os.Exit(1)
	}
}
