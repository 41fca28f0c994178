package config

import (
	"time"
)

// Environment variables of the reservation expiry worker.
const (
	EnvExpiryInterval       = "LENDING_EXPIRY_INTERVAL"
	EnvExpiryTimeout        = "LENDING_EXPIRY_TIMEOUT"
	EnvExpiryRunImmediately = "LENDING_EXPIRY_RUN_IMMEDIATELY"
)

// WorkerConfig controls how often the expiry sweep runs.
type WorkerConfig struct {
	Interval       time.Duration
	Timeout        time.Duration
	RunImmediately bool
}

// DefaultWorkerConfig sweeps every 15 minutes, bounded to one minute per run, starting right away.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Interval:       15 * time.Minute,
		Timeout:        time.Minute,
		RunImmediately: true,
	}
}

// WorkerConfigFromEnv applies the expiry worker overrides that are set.
func WorkerConfigFromEnv() (WorkerConfig, error) {
	cfg := DefaultWorkerConfig()

	var err error

	if cfg.Interval, err = envDuration(EnvExpiryInterval, cfg.Interval); err != nil {
		return WorkerConfig{}, err
	}

	if cfg.Timeout, err = envDuration(EnvExpiryTimeout, cfg.Timeout); err != nil {
		return WorkerConfig{}, err
	}

	if cfg.RunImmediately, err = envBool(EnvExpiryRunImmediately, cfg.RunImmediately); err != nil {
		return WorkerConfig{}, err
	}

	if cfg.Interval <= 0 {
		return WorkerConfig{}, invalidEnvValue(EnvExpiryInterval, cfg.Interval.String(), errNonPositive)
	}

	return cfg, nil
}
