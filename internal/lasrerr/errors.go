// Package lasrerr defines the error taxonomy shared by pipeline assembly,
// input resolution and engine dispatch.
//
// Every error produced by this module wraps exactly one of the sentinels
// below, so callers classify failures with errors.Is:
//
//	if errors.Is(err, lasrerr.ErrNoInputFiles) { ... }
//
// A structured failure reported by the engine (success=false) is not an
// error at all; it is returned to the caller as data by the executor.
package lasrerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgument reports malformed or missing parameters at
	// construction time.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTypeMismatch reports a connection whose target stage has the wrong
	// output kind or algoname.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrPathNotFound reports an input path that does not exist.
	ErrPathNotFound = errors.New("path not found")

	// ErrNoInputFiles reports that input resolution produced no point-cloud file.
	ErrNoInputFiles = errors.New("no input files")

	// ErrEngineFailure reports a crash or unparsable answer from the engine.
	ErrEngineFailure = errors.New("engine failure")

	// ErrStructuredFailure marks an engine that ran and answered
	// success=false. Execute reports it as data; Result.Failure turns it
	// into an error for callers that want one.
	ErrStructuredFailure = errors.New("engine reported failure")

	// ErrUnresolvedConnection reports a connection whose target stage is not
	// part of the pipeline being serialized. It is an invalid argument.
	ErrUnresolvedConnection = fmt.Errorf("%w: unresolved connection", ErrInvalidArgument)
)

// InvalidArgument formats an error wrapping ErrInvalidArgument.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// TypeMismatch formats an error wrapping ErrTypeMismatch.
func TypeMismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTypeMismatch, fmt.Sprintf(format, args...))
}

// PathNotFound returns an error wrapping ErrPathNotFound that names path.
func PathNotFound(path string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s: %v", ErrPathNotFound, path, cause)
	}
	return fmt.Errorf("%w: %s", ErrPathNotFound, path)
}

// NoInputFiles returns an error wrapping ErrNoInputFiles that names the
// inputs that were searched.
func NoInputFiles(inputs []string) error {
	return fmt.Errorf("%w: No .las/.laz files found in %s", ErrNoInputFiles, strings.Join(inputs, ", "))
}

// EngineFailure wraps cause as an ErrEngineFailure.
func EngineFailure(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrEngineFailure, op, cause)
}
