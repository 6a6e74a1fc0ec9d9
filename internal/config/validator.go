package config

import "fmt"

// MinAPIKeyLength is the shortest API key accepted without a warning.
const MinAPIKeyLength = 32

// Warnings reports non-fatal configuration issues worth logging at
// startup, such as default credentials outside memory mode.
func (c *Config) Warnings() []string {
	var warnings []string

	if !c.MemoryStore {
		if c.DBPassword == "postgres" {
			warnings = append(warnings, "DB_PASSWORD is the default value - set a real password")
		}
		if c.DBUser == "postgres" {
			warnings = append(warnings, "DB_USER is the default value")
		}
	}

	if len(c.APIKey) < MinAPIKeyLength {
		warnings = append(warnings, fmt.Sprintf("API_KEY is shorter than %d characters - generate one with: openssl rand -hex 32", MinAPIKeyLength))
	}

	return warnings
}
