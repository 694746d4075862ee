package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Env holds the settings that may come from the process environment.
type Env struct {
	Network            string
	RPCURL             string
	Generator          string
	DependencyRegistry string
}

// ReadEnv reads the OGVIEW_* variables.
func ReadEnv() Env {
	return Env{
		Network:            os.Getenv(EnvNetwork),
		RPCURL:             os.Getenv(EnvRPCURL),
		Generator:          os.Getenv(EnvGenerator),
		DependencyRegistry: os.Getenv(EnvDependencyRegistry),
	}
}

// LoadDotEnv loads .env.local and .env from dir. Variables already set in
// the environment win, then .env.local, then .env. It returns the files that
// were loaded; a file that fails to parse is reported but does not stop the
// others.
func LoadDotEnv(dir string) ([]string, error) {
	var (
		loaded []string
		errs   []error
	)
	for _, name := range []string{".env.local", ".env"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			errs = append(errs, fmt.Errorf("loading %s: %w", path, err))
			continue
		}
		loaded = append(loaded, path)
	}
	return loaded, errors.Join(errs...)
}
