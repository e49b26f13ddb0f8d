// Copyright 2023-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cachetesting holds the conformance checks every rulepack.Cache
// implementation in this module runs.
package cachetesting

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ydec/rulepack"
)

// Keys used by RunSimpleCacheTests. They mirror real schema IDs so that key
// sanitizing is exercised.
const (
	KeyModule   = "buf.build/ydec/mahjong:main"
	KeyProto    = "proto:mahjong_rule.proto"
	KeyEmpty    = ""
	valueLength = 100
)

// RunSimpleCacheTests saves and loads random values under a few keys and
// returns what was stored, so callers can inspect the backing store.
//
//nolint:revive // okay that ctx is second; prefer t to be first
func RunSimpleCacheTests(t *testing.T, ctx context.Context, cache rulepack.Cache) map[string][]byte {
	t.Helper()

	// Values are random so that concurrently running tests sharing a
	// backing store cannot satisfy each other's expectations.
	entries := make(map[string][]byte, 3)
	for _, k := range []string{KeyModule, KeyProto, KeyEmpty} {
		val := make([]byte, valueLength)
		_, err := rand.Read(val)
		require.NoError(t, err)
		entries[k] = val
	}

	// load fails since nothing exists
	_, err := cache.Load(ctx, KeyModule)
	require.Error(t, err)
	require.NoError(t, cache.Save(ctx, KeyModule, entries[KeyModule]))
	loaded, err := cache.Load(ctx, KeyModule)
	require.NoError(t, err)
	require.Equal(t, entries[KeyModule], loaded)

	// another key
	_, err = cache.Load(ctx, KeyProto)
	require.Error(t, err)
	require.NoError(t, cache.Save(ctx, KeyProto, entries[KeyProto]))
	loaded, err = cache.Load(ctx, KeyProto)
	require.NoError(t, err)
	require.Equal(t, entries[KeyProto], loaded)

	// original key unchanged
	loaded, err = cache.Load(ctx, KeyModule)
	require.NoError(t, err)
	require.Equal(t, entries[KeyModule], loaded)

	// overwrite
	replacement := make([]byte, valueLength)
	_, err = rand.Read(replacement)
	require.NoError(t, err)
	require.NoError(t, cache.Save(ctx, KeyProto, replacement))
	loaded, err = cache.Load(ctx, KeyProto)
	require.NoError(t, err)
	require.Equal(t, replacement, loaded)
	entries[KeyProto] = replacement

	// empty key
	require.NoError(t, cache.Save(ctx, KeyEmpty, entries[KeyEmpty]))
	loaded, err = cache.Load(ctx, KeyEmpty)
	require.NoError(t, err)
	require.Equal(t, entries[KeyEmpty], loaded)

	return entries
}
