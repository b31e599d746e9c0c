// Package config loads accountd settings from the environment.
//
// Settings are plain structs with cleanenv `env` and `env-default` tags,
// grouped the way the binary wires its components. A .env file in the
// working directory is read first; variables already set win.
//
//	cfg, err := config.Load()
//	if err != nil {
//		// handle error
//	}
//	if err := cfg.Validate(); err != nil {
//		// handle error
//	}
//	policy := cfg.PasswordComplexity.ToPasswordPolicy()
package config
