// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/stridedslice/pkg/core/slicing"
)

// fakeBackend only records the configuration it was created with.
type fakeBackend struct {
	Backend
	name, config string
}

func (f *fakeBackend) String() string { return f.name }

func TestRegistry(t *testing.T) {
	savedConstructors, savedFirst := registeredConstructors, firstRegistered
	defer func() { registeredConstructors, firstRegistered = savedConstructors, savedFirst }()
	registeredConstructors = make(map[string]Constructor)
	firstRegistered = ""

	_, err := NewWithConfig("")
	require.Error(t, err)

	for _, name := range []string{"b", "a"} {
		Register(name, func(config string) (Backend, error) {
			if config == "fail" {
				return nil, errors.New("bad config")
			}
			return &fakeBackend{name: name, config: config}, nil
		})
	}
	require.Equal(t, []string{"a", "b"}, List())

	testCases := []struct {
		config, name, backendConfig string
	}{
		{"", "b", ""},
		{"a", "a", ""},
		{"a:parallelism=2,nofastpaths", "a", "parallelism=2,nofastpaths"},
		{"b:", "b", ""},
	}
	for _, tc := range testCases {
		backend, err := NewWithConfig(tc.config)
		require.NoError(t, err, "config=%q", tc.config)
		fake := backend.(*fakeBackend)
		require.Equal(t, tc.name, fake.String())
		require.Equal(t, tc.backendConfig, fake.config)
	}

	_, err = NewWithConfig("c:x")
	require.ErrorContains(t, err, `can't find backend "c"`)
	_, err = NewWithConfig("a:fail")
	require.ErrorContains(t, err, "bad config")

	t.Setenv(ConfigEnvVar, "a:from-env")
	backend, err := New()
	require.NoError(t, err)
	require.Equal(t, "from-env", backend.(*fakeBackend).config)
	require.Equal(t, "a", MustNew().String())

	t.Setenv(ConfigEnvVar, "missing")
	require.Panics(t, func() { MustNew() })
}

func TestCapabilities(t *testing.T) {
	c := Capabilities{
		FastPaths: map[slicing.FastPath]bool{slicing.PathIdentity: true},
		DTypes:    map[dtypes.DType]bool{dtypes.Float32: true},
	}
	require.True(t, c.SupportsPath(slicing.PathGeneric))
	require.True(t, c.SupportsPath(slicing.PathIdentity))
	require.False(t, c.SupportsPath(slicing.PathSimpleSlice2D))
	require.True(t, c.SupportsDType(dtypes.Float32))
	require.False(t, c.SupportsDType(dtypes.Int8))

	c2 := c.Clone()
	c2.FastPaths[slicing.PathSimpleSlice2D] = true
	c2.DTypes[dtypes.Int8] = true
	require.False(t, c.SupportsPath(slicing.PathSimpleSlice2D))
	require.False(t, c.SupportsDType(dtypes.Int8))

	var empty Capabilities
	require.True(t, empty.SupportsPath(slicing.PathGeneric))
	require.False(t, empty.SupportsPath(slicing.PathIdentity))
}
