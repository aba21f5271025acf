// Package errs defines the error-kind taxonomy shared across the control
// plane. Components check errors with errors.As against these sentinel
// types rather than matching on strings, so the HTTP layer's status-code
// mapping and the input/dispatcher swallow-vs-log policy both reduce to a
// single type switch.
package errs

import "fmt"

// ConfigError reports a missing or invalid configuration or mapping file.
// Fatal at boot (see cmd/mgurdyd).
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NotFoundError reports a missing preset, sound, mapping, or similar
// named resource.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// ValidationError reports a schema-failed request payload. Fields maps
// each failing dotted field path to a human-readable reason; the HTTP
// layer writes it as the {errors:{...}} response body.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}

// DeviceIOError reports a failed engine/synth/MIDI/ALSA call. ENODEV
// indicates the underlying device was hot-unplugged.
type DeviceIOError struct {
	Op     string
	ENODEV bool
	Err    error
}

func (e *DeviceIOError) Error() string {
	return fmt.Sprintf("device io: %s: %v", e.Op, e.Err)
}

func (e *DeviceIOError) Unwrap() error { return e.Err }

// PersistenceError reports the preset/config store being unreachable.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// TransientError reports a would-block or hot-unplug condition that
// callers should silently retry or ignore.
type TransientError struct {
	Reason string
}

func (e *TransientError) Error() string { return "transient: " + e.Reason }
