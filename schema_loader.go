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

package rulepack

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/descriptorpb"
)

// SchemaLoaderConfig contains the configurable attributes of [LoadSchema].
type SchemaLoaderConfig struct {
	// Source of the descriptors. Required.
	Source SchemaSource
	// If Cache is non-nil, every successfully fetched schema is saved to it,
	// and if Source fails the most recently saved schema is used instead.
	Cache Cache
	// CacheKeyPrefix is prepended to the schema ID to form the cache key.
	// Optional; it is up to the Cache to sanitize the key if necessary.
	CacheKeyPrefix string
}

func (c *SchemaLoaderConfig) validate() error {
	if c == nil {
		return fmt.Errorf("schema loader config not provided")
	}
	if c.Source == nil {
		return fmt.Errorf("schema source not provided")
	}
	return nil
}

// LoadedSchema is the result of [LoadSchema].
type LoadedSchema struct {
	Resolver Resolver
	// Version reported by the source; blank when loaded from cache.
	Version string
	// FromCache is true when the source failed and the cached copy was used.
	FromCache bool
}

// LoadSchema fetches descriptors from the configured source and builds a
// [Resolver] over them.
func LoadSchema(ctx context.Context, config *SchemaLoaderConfig) (*LoadedSchema, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx)
	schemaID := config.Source.GetSchemaID()
	descriptors, version, fromCache, err := getFileDescriptorSet(ctx, config, schemaID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schema %s: %w", schemaID, err)
	}
	resolver, err := newResolver(descriptors)
	if err != nil {
		return nil, fmt.Errorf("unable to create resolver from schema %s: %w", schemaID, err)
	}
	logger.Debug().
		Str("schema", schemaID).
		Str("version", version).
		Bool("from_cache", fromCache).
		Int("files", len(descriptors.GetFile())).
		Msg("schema loaded")
	return &LoadedSchema{
		Resolver:  resolver,
		Version:   version,
		FromCache: fromCache,
	}, nil
}

func getFileDescriptorSet(ctx context.Context, config *SchemaLoaderConfig, schemaID string) (*descriptorpb.FileDescriptorSet, string, bool, error) {
	cacheKey := config.CacheKeyPrefix + schemaID
	descriptors, version, err := config.Source.GetSchema(ctx)
	if err != nil {
		if config.Cache == nil {
			return nil, "", false, err
		}
		zerolog.Ctx(ctx).Warn().Err(err).Str("schema", schemaID).Msg("schema source failed, falling back to cache")
		data, cacheErr := config.Cache.Load(ctx, cacheKey)
		if cacheErr != nil {
			return nil, "", false, fmt.Errorf("%w (failed to load from cache: %v)", err, cacheErr)
		}
		cached, cacheErr := decodeForCache(data)
		if cacheErr != nil {
			return nil, "", false, fmt.Errorf("%w (failed to decode cached value: %v)", err, cacheErr)
		}
		return cached, "", true, nil
	}
	if config.Cache != nil {
		data, err := encodeForCache(descriptors)
		if err == nil {
			err = config.Cache.Save(ctx, cacheKey, data)
		}
		if err != nil {
			// A cache that cannot be written only matters on a later failure.
			zerolog.Ctx(ctx).Warn().Err(err).Str("key", cacheKey).Msg("failed to save schema to cache")
		}
	}
	return descriptors, version, false, nil
}
