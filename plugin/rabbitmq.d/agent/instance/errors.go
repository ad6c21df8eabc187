// SPDX-License-Identifier: GPL-3.0-or-later

package instance

import (
	"errors"
	"fmt"
)

var (
	ErrMissingDisplayName   = errors.New("displayName is required")
	ErrDuplicateDisplayName = errors.New("duplicate displayName")
	ErrMissingEncryptionKey = errors.New("missing encryption key")
	ErrNoInstances          = errors.New("no servers configured")
)

// ConfigError is fatal to the registry build: no instance is registered and no task is submitted.
type ConfigError struct {
	// Path points at the offending part of the configuration document, e.g. "servers[1].port".
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// PreconditionError is fatal to the whole monitoring cycle.
type PreconditionError struct {
	What string
	Err  error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s: %v", e.What, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// CollectionError is raised by a single instance's task and never affects sibling tasks.
type CollectionError struct {
	Instance string
	Err      error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("instance '%s': collection failed: %v", e.Instance, e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }
