package config

import "fmt"

// ErrorKind classifies configuration errors for exit-code mapping and tests.
type ErrorKind string

const (
	// KindUnknownOption reports an option key the configuration model does not define.
	KindUnknownOption ErrorKind = "unknown-option"
	// KindInvalidValue reports a recognized option carrying an out-of-range or unparseable value.
	KindInvalidValue ErrorKind = "invalid-value"
)

// ConfigError is a structured validation error raised before any process is spawned.
type ConfigError struct {
	Kind   ErrorKind
	Option string
	Value  string
	Err    error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Option != "" && e.Value != "":
		return fmt.Sprintf("config: %s: option %q value %q", e.Kind, e.Option, e.Value)
	case e.Option != "":
		return fmt.Sprintf("config: %s: option %q", e.Kind, e.Option)
	case e.Err != nil:
		return fmt.Sprintf("config: %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("config: %s", e.Kind)
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

func unknownOption(option string) *ConfigError {
	return &ConfigError{Kind: KindUnknownOption, Option: option}
}

func invalidValue(option, value string) *ConfigError {
	return &ConfigError{Kind: KindInvalidValue, Option: option, Value: value}
}
