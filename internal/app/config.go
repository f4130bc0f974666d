package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath  string // hcl file or directory
	CircuitPath string // overrides the circuit block when set
	OutPath     string // result file; empty writes to the app's out writer

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
	AllowUpdate     bool
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
