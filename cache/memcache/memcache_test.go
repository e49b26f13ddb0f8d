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

package memcache

import (
	"context"
	"strings"
	"testing"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/stretchr/testify/require"
)

func TestMemcache_ConfigValidation(t *testing.T) {
	t.Parallel()
	client := memcache.New("localhost:11211")
	testCases := []struct {
		name      string
		config    Config
		expectErr string
	}{
		{
			name:      "no client",
			expectErr: "client cannot be nil",
		},
		{
			name:      "negative expiry",
			config:    Config{Client: client, ExpirationSeconds: -1},
			expectErr: "cannot be negative",
		},
		{
			name:      "whitespace in prefix",
			config:    Config{Client: client, KeyPrefix: "rule pack:"},
			expectErr: "cannot contain whitespace",
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(testCase.config)
			require.ErrorContains(t, err, testCase.expectErr)
		})
	}
}

func TestMemcache_KeyTooLong(t *testing.T) {
	t.Parallel()
	// The key check happens before any network traffic, so no server is needed.
	cache, err := New(Config{Client: memcache.New("localhost:11211"), KeyPrefix: "rulepack:"})
	require.NoError(t, err)
	_, err = cache.Load(context.Background(), strings.Repeat("k", maxKeyLength))
	require.ErrorContains(t, err, "longer than 250 bytes")
	err = cache.Save(context.Background(), strings.Repeat("k", maxKeyLength), []byte("x"))
	require.ErrorContains(t, err, "longer than 250 bytes")
}
