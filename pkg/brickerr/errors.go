// Package brickerr defines the error taxonomy shared by every layer of
// the brickmap engine: a free-list exhaustion, an invariant violation
// caught at a GPU mutation, and the load-time failures surfaced by the
// world loader. These are sentinel errors, not types, so callers use
// errors.Is against them and wrap with fmt.Errorf("...: %w", ...) the
// way the teacher corpus does throughout pkg/network and
// internal/openglhelper.
package brickerr

import "errors"

// ErrExhausted is returned when a free list (node or brick arena) has
// no slots left. Callers skip the operation and log a warning; it is
// never fatal to the frame.
var ErrExhausted = errors.New("brickmap: free list exhausted")

// ErrInvariantViolation is returned when a caller asks for a divide on
// an already-internal node, a cull on a leaf, or a divide whose CPU
// mirror turns out to be a leaf. These indicate a controller bug and
// are logged at warn level, never propagated to fail a frame.
var ErrInvariantViolation = errors.New("brickmap: invariant violation")

// ErrNotFound is returned when a requested world file is missing.
var ErrNotFound = errors.New("brickmap: not found")

// ErrMalformed is returned when region or chunk bytes cannot be parsed.
var ErrMalformed = errors.New("brickmap: malformed data")
