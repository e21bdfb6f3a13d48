package octree

import "fmt"

// ConfigError indicates invalid tile or base-shape parameters given at
// octree construction.  It is fatal to construction and surfaced to the
// caller immediately.
type ConfigError string

func (e ConfigError) Error() string { return string(e) }

func configErrorf(format string, args ...interface{}) ConfigError {
	return ConfigError(fmt.Sprintf(format, args...))
}

// RangeError indicates an out-of-bounds level or tile coordinate on a direct
// chunk query.  Direct indexing is never silently clamped; clamping happens
// only in intersection computation against view rectangles.
type RangeError string

func (e RangeError) Error() string { return string(e) }

func rangeErrorf(format string, args ...interface{}) RangeError {
	return RangeError(fmt.Sprintf(format, args...))
}
