package configutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads the given .env files (default ".env") into the process
// environment. Variables that are already set win, missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Lookup returns the first non-empty variable out of keys, later keys are aliases.
func Lookup(keys ...string) (string, bool) {
	for _, k := range keys {
		value := strings.TrimSpace(os.Getenv(k))
		if value != "" {
			return value, true
		}
	}
	return "", false
}

// OverrideString sets target to the first variable found.
func OverrideString(target *string, keys ...string) {
	value, ok := Lookup(keys...)
	if ok {
		*target = value
	}
}

func OverrideInt(target *int, keys ...string) error {
	value, ok := Lookup(keys...)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s: %w", strings.Join(keys, "/"), err)
	}
	*target = n
	return nil
}

func OverrideBool(target *bool, keys ...string) error {
	value, ok := Lookup(keys...)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s: %w", strings.Join(keys, "/"), err)
	}
	*target = b
	return nil
}

// IsProduction reports whether GO_ENV is "production".
func IsProduction() bool {
	return os.Getenv("GO_ENV") == "production"
}
