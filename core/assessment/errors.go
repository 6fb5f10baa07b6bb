package assessment

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

var (
	// errors
	ErrMetricNotFound = errors.New("metric not found")
	ErrMetricExists   = errors.New("a metric with this name already exists on this entity")
	ErrRecordNotFound = errors.New("assessment record not found")
)

// ConfigurationError indicates an invalid metric definition: unknown rule
// name, unknown level, missing submetric reference, out-of-range parameters.
// Surfaced to API callers as a client error; never retried.
type ConfigurationError struct {
	msg string
}

func newConfigurationErrorf(format string, args ...interface{}) error {
	return &ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

func (e ConfigurationError) Error() string { return e.msg }

// IsConfigurationError reports whether err (or its cause) is a ConfigurationError.
func IsConfigurationError(err error) bool {
	_, ok := pkgerrors.Cause(err).(*ConfigurationError)
	return ok
}
