package store

import (
	"errors"
	"fmt"
)

// upstream wraps a driver error so callers can test for
// ErrUpstreamUnavailable without seeing the driver type.
func upstream(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
}
