package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every engine package. Callers match with errors.Is;
// producers wrap with fmt.Errorf("...: %w", ErrX) to keep the failing parameter visible.
var (
	// ErrConfiguration marks an invalid or missing parameter. No partial result accompanies it.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnknownMaterial is returned when a material code is absent from the database.
	ErrUnknownMaterial = errors.New("unknown material")
	// ErrUnknownTechnology is returned for reactor/fuel/magnet tags outside the supported sets.
	ErrUnknownTechnology = errors.New("unknown technology")
	// ErrInvalidGeometry is raised before cost aggregation when a radial build is not physical.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrNumerical describes a metric that could not be computed (no IRR root, zero energy).
	// Financial code reports it as a flag, not as a returned error.
	ErrNumerical = errors.New("numerical error")
)

// ErrNegativeCost is a configuration error raised when any cost account comes out below zero.
var ErrNegativeCost = fmt.Errorf("negative cost account: %w", ErrConfiguration)
