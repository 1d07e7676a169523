package timeline

import (
	"errors"
	"fmt"
)

// MissingRuntimeSupportError reports that a host capability required to run
// the module was not provided. Fatal: retrying cannot succeed.
type MissingRuntimeSupportError struct {
	Capability string
}

func (e *MissingRuntimeSupportError) Error() string {
	return fmt.Sprintf("missing runtime support: %s is not available", e.Capability)
}

// AssetFetchError reports that the module binary or a timeline payload could
// not be retrieved. StatusCode is set for HTTP failures, Status carries a
// human readable status for every source.
type AssetFetchError struct {
	Location   string
	StatusCode int
	Status     string
	Err        error
}

func (e *AssetFetchError) Error() string {
	msg := fmt.Sprintf("failed to fetch '%s'", e.Location)
	if e.Status != "" {
		msg += fmt.Sprintf(": %s", e.Status)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *AssetFetchError) Unwrap() error {
	return e.Err
}

// InstantiationError reports that the module binary was fetched but could not
// be compiled, instantiated or run.
type InstantiationError struct {
	Location string
	Err      error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to instantiate module '%s': %v", e.Location, e.Err)
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}

// NotInitializedError is returned by Loader when the module has not been
// initialized yet.
type NotInitializedError struct{}

func (e *NotInitializedError) Error() string {
	return "module not initialized: call ModuleLoader.Initialize first"
}

// InvalidArgumentError reports a rejected argument. No I/O has happened.
type InvalidArgumentError struct {
	Argument string
	Reason   string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument '%s': %s", e.Argument, e.Reason)
}

// BridgeContractViolationError reports that the module does not expose the
// entry points the bridge relies on.
type BridgeContractViolationError struct {
	EntryPoint string
	Detail     string
}

func (e *BridgeContractViolationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("bridge contract violation: entry point '%s' is not available", e.EntryPoint)
	}
	return fmt.Sprintf("bridge contract violation: entry point '%s': %s", e.EntryPoint, e.Detail)
}

// IsMissingRuntimeSupport returns true if err is or wraps a MissingRuntimeSupportError.
func IsMissingRuntimeSupport(err error) bool {
	var target *MissingRuntimeSupportError
	return errors.As(err, &target)
}

// IsAssetFetch returns true if err is or wraps an AssetFetchError.
func IsAssetFetch(err error) bool {
	var target *AssetFetchError
	return errors.As(err, &target)
}

// IsInstantiation returns true if err is or wraps an InstantiationError.
func IsInstantiation(err error) bool {
	var target *InstantiationError
	return errors.As(err, &target)
}

// IsNotInitialized returns true if err is or wraps a NotInitializedError.
func IsNotInitialized(err error) bool {
	var target *NotInitializedError
	return errors.As(err, &target)
}

// IsInvalidArgument returns true if err is or wraps an InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	var target *InvalidArgumentError
	return errors.As(err, &target)
}

// IsBridgeContractViolation returns true if err is or wraps a BridgeContractViolationError.
func IsBridgeContractViolation(err error) bool {
	var target *BridgeContractViolationError
	return errors.As(err, &target)
}
