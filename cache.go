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

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Cache can be supplied to [LoadSchema] so that a conversion can still run
// when the schema source is unavailable, for example when a build runs
// offline and the schema normally comes from the Buf Schema Registry.
// Whenever a schema is fetched successfully it is saved to the cache; if a
// later fetch fails, the schema is loaded from the cache instead.
type Cache interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

func encodeForCache(descriptors *descriptorpb.FileDescriptorSet) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(descriptors)
}

func decodeForCache(data []byte) (*descriptorpb.FileDescriptorSet, error) {
	var descriptors descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(data, &descriptors); err != nil {
		return nil, err
	}
	return &descriptors, nil
}
