package config

import (
	"log/slog"

	"github.com/eduverse/accountd/pkg/credential"
	"github.com/jinzhu/copier"
)

// PasswordComplexityConfig holds password policy configuration from environment variables
type PasswordComplexityConfig struct {
	Enabled                 bool `env:"PASSWORD_POLICY_ENABLED" env-default:"true" copier:"-"`
	RequiredDigit           bool `env:"PASSWORD_COMPLEXITY_REQUIRE_DIGIT" env-default:"true" copier:"RequireDigit"`
	RequiredLowercase       bool `env:"PASSWORD_COMPLEXITY_REQUIRE_LOWERCASE" env-default:"true" copier:"RequireLowercase"`
	RequiredNonAlphanumeric bool `env:"PASSWORD_COMPLEXITY_REQUIRE_NON_ALPHANUMERIC" env-default:"false" copier:"RequireSpecialChar"`
	RequiredUppercase       bool `env:"PASSWORD_COMPLEXITY_REQUIRE_UPPERCASE" env-default:"true" copier:"RequireUppercase"`
	RequiredLength          int  `env:"PASSWORD_COMPLEXITY_REQUIRED_LENGTH" env-default:"8" copier:"MinLength"`
	MaxLength               int  `env:"PASSWORD_COMPLEXITY_MAX_LENGTH" env-default:"72"`
	DisallowCommonPwds      bool `env:"PASSWORD_COMPLEXITY_DISALLOW_COMMON_PWDS" env-default:"true"`
	MaxRepeatedChars        int  `env:"PASSWORD_COMPLEXITY_MAX_REPEATED_CHARS" env-default:"3"`
}

// ToPasswordPolicy converts the configuration to a credential.PasswordPolicy.
// A disabled policy only keeps the minimum length the reset workflow demands.
func (c *PasswordComplexityConfig) ToPasswordPolicy() *credential.PasswordPolicy {
	if c == nil {
		return credential.DefaultPasswordPolicy()
	}
	if !c.Enabled {
		return &credential.PasswordPolicy{MinLength: 8}
	}

	var policy credential.PasswordPolicy
	if err := copier.Copy(&policy, c); err != nil {
		slog.Error("Failed to map password policy, using default", "err", err)
		return credential.DefaultPasswordPolicy()
	}

	slog.Info("Password policy configuration",
		"minLength", policy.MinLength,
		"requireSpecial", policy.RequireSpecialChar,
		"maxRepeated", policy.MaxRepeatedChars,
	)
	return &policy
}

// DevelopmentDefaults returns relaxed password policy configuration for development
func DevelopmentDefaults() *PasswordComplexityConfig {
	return &PasswordComplexityConfig{
		Enabled:        false,
		RequiredLength: 8,
	}
}
