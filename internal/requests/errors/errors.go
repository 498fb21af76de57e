package errors

import "errors"

var (
	// ErrNotFound covers requests that never existed and requests that are
	// no longer in the state the operation needs.
	ErrNotFound = errors.New("slot request not found")

	// ErrStateChanged means a conditional transition matched no document
	// because the request left the expected state concurrently.
	ErrStateChanged = errors.New("slot request status changed concurrently")

	ErrVehicleNotFound = errors.New("vehicle not found")
)
