package config

import "errors"

// Sentinel errors for the config package.
var (
	// ErrDuplicateServer is returned when adding a server whose id is
	// already configured.
	ErrDuplicateServer = errors.New("config: server id already exists")

	// ErrServerNotFound is returned when referencing a server id that is
	// not in the configuration.
	ErrServerNotFound = errors.New("config: server not found")

	// ErrMalformed is returned when a configuration document cannot be
	// decoded.
	ErrMalformed = errors.New("config: malformed document")
)
