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

// Package memcache provides an implementation of rulepack.Cache that is
// backed by a memcached instance: https://memcached.org/. It lets build
// agents that share a memcached share fetched schemas too.
package memcache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/ydec/rulepack"
)

// memcached rejects longer keys.
const maxKeyLength = 250

// Config represents the configuration parameters used to create a new
// memcached-backed cache.
type Config struct {
	// Required.
	Client *memcache.Client
	// Prepended to every cache key. Optional.
	KeyPrefix string
	// Zero means cached schemas never expire.
	ExpirationSeconds int32
}

// New creates a new memcached-backed cache with the given configuration.
func New(config Config) (rulepack.Cache, error) {
	if config.Client == nil {
		return nil, errors.New("client cannot be nil")
	}
	if config.ExpirationSeconds < 0 {
		return nil, fmt.Errorf("expiration seconds (%d) cannot be negative", config.ExpirationSeconds)
	}
	if strings.ContainsAny(config.KeyPrefix, " \t\r\n") {
		return nil, fmt.Errorf("key prefix %q cannot contain whitespace", config.KeyPrefix)
	}
	return (*cache)(&config), nil
}

type cache Config

func (c *cache) Load(_ context.Context, key string) ([]byte, error) {
	fullKey, err := c.key(key)
	if err != nil {
		return nil, err
	}
	item, err := c.Client.Get(fullKey)
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

func (c *cache) Save(_ context.Context, key string, data []byte) error {
	fullKey, err := c.key(key)
	if err != nil {
		return err
	}
	return c.Client.Set(&memcache.Item{
		Key:        fullKey,
		Value:      data,
		Expiration: c.ExpirationSeconds,
	})
}

func (c *cache) key(key string) (string, error) {
	fullKey := c.KeyPrefix + key
	if len(fullKey) > maxKeyLength {
		return "", fmt.Errorf("cache key %q is longer than %d bytes", fullKey, maxKeyLength)
	}
	return fullKey, nil
}
