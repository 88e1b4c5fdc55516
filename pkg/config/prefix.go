package config

// PrefixConfig holds the mount points of the API route groups.
//
//	API_PREFIX_USERS=/internal/users
//	API_PREFIX_ROLES=/internal/roles
//	API_PREFIX_AUTH=/auth
type PrefixConfig struct {
	Users string `env:"API_PREFIX_USERS" env-default:"/internal/users"`
	Roles string `env:"API_PREFIX_ROLES" env-default:"/internal/roles"`
	Auth  string `env:"API_PREFIX_AUTH" env-default:"/auth"`
}

// DefaultPrefixes returns the prefixes existing clients are deployed against.
func DefaultPrefixes() PrefixConfig {
	return PrefixConfig{
		Users: "/internal/users",
		Roles: "/internal/roles",
		Auth:  "/auth",
	}
}

func (p PrefixConfig) Validate() ValidationErrors {
	errs := CollectErrors(
		RequirePathPrefix("API_PREFIX_USERS", p.Users),
		RequirePathPrefix("API_PREFIX_ROLES", p.Roles),
		RequirePathPrefix("API_PREFIX_AUTH", p.Auth),
	)
	if len(errs) == 0 && (p.Users == p.Roles || p.Users == p.Auth || p.Roles == p.Auth) {
		errs = append(errs, ValidationError{Field: "API_PREFIX_*", Message: "prefixes must be distinct"})
	}
	return errs
}
