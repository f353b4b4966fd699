// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package backends defines the interface a strided-slice execution engine needs to implement.
//
// The shape algebra (resolving a slicing specification, and classifying which fast path applies)
// is backend independent and lives in package slicing. A backend only receives an already
// resolved slice, plus the fast path selected for it among those it declared in its Capabilities,
// and moves the data.
//
// Backends are registered by name (see Register), and created with a configuration string
// (see NewWithConfig), usually taken from the environment variable ConfigEnvVar.
//
// To simplify the internal error handling, backends may throw (panic) with a stack trace for
// errors in their implementation, see package github.com/gomlx/exceptions, but the methods of
// the interface return them as errors.
package backends

import (
	"os"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/gomlx/stridedslice/pkg/core/slicing"
)

// Backend is the API that needs to be implemented by a strided-slice backend.
type Backend interface {
	// Name returns the short name of the backend. E.g.: "go" for the SimpleGo backend.
	Name() string

	// String returns the name used to register the backend.
	String() string

	// Description is a longer description of the Backend that can be used to pretty-print.
	Description() string

	// Capabilities returns what is supported by the backend.
	Capabilities() Capabilities

	// DataInterface is the sub-interface that defines the API to allocate and transfer buffers.
	DataInterface

	// Slice extracts the elements selected by the resolution from the operand, and returns them in
	// a newly allocated buffer with the resolution's FinalShape.
	//
	// The path must be one of the fast paths declared in Capabilities (or slicing.PathGeneric), and
	// valid for the resolution, see slicing.Classify. The operand is not modified.
	Slice(operand Buffer, resolution *slicing.Resolution, path slicing.FastPath) (Buffer, error)

	// ScatterSlice writes the values, in row-major order, to the positions of target selected by the
	// resolution. Other positions of target are not touched. It uses the generic strided walk.
	//
	// The values buffer must hold resolution.NumElements() elements of the same dtype as target,
	// and target must have the resolution's input shape.
	//
	// The target is mutated in place: the caller must guarantee exclusive access to it for the
	// duration of the call.
	ScatterSlice(target Buffer, resolution *slicing.Resolution, values Buffer) error

	// Finalize releases all the associated resources immediately, and makes the backend invalid.
	Finalize()
}

// Constructor takes a config string (optionally empty) and returns a Backend.
type Constructor func(config string) (Backend, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register backend with the given name, and a default constructor that takes as input a configuration string that is
// passed along to the backend constructor.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// List the registered backends, sorted by name.
func List() []string {
	names := make([]string, 0, len(registeredConstructors))
	for name := range registeredConstructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultConfig is the name of the default backend configuration to use if specified.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig string

// ConfigEnvVar is the environment variable with the default backend configuration to use.
//
// The format of config is "<backend_name>:<backend_configuration>".
// The "<backend_name>" is the name of a registered backend (e.g.: "go") and
// "<backend_configuration>" is backend specific (e.g.: for the "go" backend, "parallelism=4").
const ConfigEnvVar = "STRIDEDSLICE_BACKEND"

// New returns a new default Backend.
//
// The default is:
//
// 1. The environment ConfigEnvVar is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered backend is used with an empty configuration.
//
// It returns an error if no backend was registered.
func New() (Backend, error) {
	config, found := os.LookupEnv(ConfigEnvVar)
	if found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// MustNew is like New, but panics on error.
func MustNew() Backend {
	backend, err := New()
	if err != nil {
		exceptions.Panicf("backends.MustNew(): %+v", err)
	}
	return backend
}

// NewWithConfig takes a configurations string formatted as "<backend_name>:<backend_configuration>".
//
// The "<backend_name>" is the name of a registered backend (e.g.: "go") and
// "<backend_configuration>" is backend specific. If only "<backend_name>" is given, the
// backend is created with an empty configuration. An empty config selects the first
// registered backend.
func NewWithConfig(config string) (Backend, error) {
	if len(registeredConstructors) == 0 {
		return nil, errors.Errorf(`no registered backends for stridedslice -- maybe import the default one with import _ "github.com/gomlx/stridedslice/backends/simplego"?`)
	}
	backendName := firstRegistered
	backendConfig := ""
	if config != "" {
		backendName = config
		if idx := strings.Index(config, ":"); idx != -1 {
			backendName = config[:idx]
			backendConfig = config[idx+1:]
		}
	}
	constructor, found := registeredConstructors[backendName]
	if !found {
		return nil, errors.Errorf("can't find backend %q for configuration %q given, registered backends: %q",
			backendName, config, List())
	}
	backend, err := constructor(backendConfig)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create backend %q with configuration %q", backendName, backendConfig)
	}
	return backend, nil
}
