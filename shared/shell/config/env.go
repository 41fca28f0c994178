package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidEnvValue is returned when a set environment variable cannot be parsed.
var ErrInvalidEnvValue = errors.New("invalid environment value")

func envString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}

	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := envString(key, "")
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidEnvValue(key, raw, err)
	}

	return value, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := envString(key, "")
	if raw == "" {
		return fallback, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, invalidEnvValue(key, raw, err)
	}

	return value, nil
}

func envBool(key string, fallback bool) (bool, error) {
	raw := envString(key, "")
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, invalidEnvValue(key, raw, err)
	}

	return value, nil
}

func invalidEnvValue(key, raw string, cause error) error {
	return errors.Join(ErrInvalidEnvValue, fmt.Errorf("%s=%q: %w", key, raw, cause))
}
