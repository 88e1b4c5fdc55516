package config

import "strings"

// Environment is the deployment environment named by APP_ENV.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
	Test        Environment = "test"
)

// ParseEnvironment normalises an APP_ENV value. Unknown values are Development.
func ParseEnvironment(value string) Environment {
	switch strings.ToLower(value) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	case "test", "testing":
		return Test
	default:
		return Development
	}
}
