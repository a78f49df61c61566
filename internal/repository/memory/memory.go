// Package memory implements the repository interfaces on plain maps and
// slices. It backs the service tests and single-node deployments; every
// method hands out copies so callers can never alias the stored state.
package memory

import (
	"errors"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("record not found")

// ErrWriteFailure simulates a storage I/O failure; see the FailWrites
// toggles on the write repositories.
var ErrWriteFailure = errors.New("simulated write failure")
