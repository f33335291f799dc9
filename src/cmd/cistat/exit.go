package main

import (
	"errors"

	"cistat/src/provider"
)

// exitCode maps an error to the process exit status: 0 on success (failed
// builds included), 1 for rejected requests and configuration errors, 2 for
// anything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, provider.ErrProviderRejected),
		errors.Is(err, provider.ErrConfiguration),
		errors.Is(err, provider.ErrInvalidRef),
		errors.Is(err, provider.ErrUnknownProvider):
		return 1
	default:
		return 2
	}
}
