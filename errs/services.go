package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Third-Party Service Errors
var (
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("timeout")
	ErrUploadFailed       = errors.New("upload failed")
)

// Configuration & Environment Errors
var (
	ErrConfigMissing       = errors.New("configuration missing")
	ErrConfigInvalid       = errors.New("configuration invalid")
	ErrEnvironmentVariable = errors.New("environment variable error")
)

// NewServiceUnavailableError reports a failed call to an external collaborator.
// It is classified as retryable.
func NewServiceUnavailableError(service string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusServiceUnavailable,
		err:        ErrServiceUnavailable,
		Details:    fmt.Sprintf("Service %s is unavailable", service),
		Cause:      cause,
	}
}

func NewTimeoutError(operation string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusGatewayTimeout,
		err:        ErrTimeout,
		Details:    fmt.Sprintf("Timed out during %s", operation),
		Field:      "timeout",
	}
}

func NewUploadError(bucket string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrUploadFailed,
		Details:    fmt.Sprintf("Could not store object in bucket %s", bucket),
		Cause:      cause,
		Field:      "file",
	}
}

// Configuration & Environment Error Constructors
func NewConfigError(configName string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrConfigMissing,
		Details:    fmt.Sprintf("Configuration error for %s", configName),
		Cause:      cause,
	}
}

func NewEnvironmentVariableError(varName string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrEnvironmentVariable,
		Details:    fmt.Sprintf("Environment variable %s is not set or invalid", varName),
		Field:      varName,
	}
}

func IsTimeoutError(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func IsUploadError(err error) bool {
	return errors.Is(err, ErrUploadFailed)
}

func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfigMissing) || errors.Is(err, ErrConfigInvalid)
}

// IsRetryable reports whether err is a transient failure (network, timeout,
// unavailable upstream) that a caller may retry. Validation, constraint,
// authorization and not-found errors are fatal to the call.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch {
	case IsDatabaseConnectionError(err),
		IsDatabaseTimeoutError(err),
		errors.Is(err, ErrDeadlock),
		errors.Is(err, ErrSerializationFailure),
		errors.Is(err, ErrServiceUnavailable),
		IsTimeoutError(err):
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
