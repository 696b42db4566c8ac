package app

import (
	"errors"
	"fmt"
)

// Actions the application knows how to run, in the order they make sense
// to explain to a user.
const (
	ActionValidate = "validate"
	ActionExport   = "export"
	ActionInfo     = "info"
)

// Override is one "dot.key.path=yaml_value" update applied after all
// documents are merged.
type Override struct {
	Key   string
	Value string
}

// Config holds everything an App instance needs to run.
type Config struct {
	Paths     []string // YAML files or directories containing them
	Overrides []Override
	Actions   []string

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config. When no action is given the document is
// still loaded and validated, which is the cheapest useful default.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Paths) == 0 {
		return nil, errors.New("at least one YAML document path is required")
	}
	for _, action := range cfg.Actions {
		switch action {
		case ActionValidate, ActionExport, ActionInfo:
		default:
			return nil, fmt.Errorf("unknown action %q", action)
		}
	}
	if len(cfg.Actions) == 0 {
		cfg.Actions = []string{ActionValidate}
	}
	return &cfg, nil
}
