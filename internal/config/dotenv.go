package config

import (
	"os"

	"github.com/joho/godotenv"
)

// dotenvFiles in shadowing order: the first file a key appears in wins.
var dotenvFiles = []string{".env.local", ".env"}

// LoadDotEnv layers env files under the process environment. Variables
// already set in the OS environment are never overwritten, and
// .env.local shadows .env. Returns the files that were present.
func LoadDotEnv() []string {
	var found []string
	for _, name := range dotenvFiles {
		if _, err := os.Stat(name); err == nil {
			found = append(found, name)
		}
	}
	if len(found) == 0 {
		return nil
	}
	_ = godotenv.Load(found...)
	return found
}
