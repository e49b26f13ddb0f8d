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
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/ydec/rulepack/schema"
)

func TestEmbeddedRuleSource(t *testing.T) {
	t.Parallel()
	source := EmbeddedRuleSource()
	assert.Equal(t, "proto:"+schema.RuleFile, source.GetSchemaID())
	descriptors, version, err := source.GetSchema(context.Background())
	require.NoError(t, err)
	require.Len(t, descriptors.GetFile(), 1)
	assert.Equal(t, schema.RuleFile, descriptors.GetFile()[0].GetName())
	assert.Equal(t, "ydec.mahjong", descriptors.GetFile()[0].GetPackage())
	assert.Len(t, version, 12)

	// Compiling the same files again yields the same version.
	_, again, err := source.GetSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, version, again)
}

func TestProtoSource_Imports(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"house/rule.proto": &fstest.MapFile{Data: []byte(`syntax = "proto3";
package house;
import "house/common.proto";
import "google/protobuf/wrappers.proto";
message HouseRule {
  repeated common.Yaku yaku = 1;
  google.protobuf.Int32Value kiriage = 2;
}
`)},
		"house/common.proto": &fstest.MapFile{Data: []byte(`syntax = "proto3";
package common;
message Yaku { string name = 1; }
`)},
	}
	source := NewProtoSource(fsys, "house/rule.proto")
	descriptors, _, err := source.GetSchema(context.Background())
	require.NoError(t, err)
	resolver, err := NewResolver(descriptors)
	require.NoError(t, err)
	_, err = resolver.FindMessageByName("house.HouseRule")
	require.NoError(t, err)
	_, err = resolver.FindMessageByName("common.Yaku")
	require.NoError(t, err)
}

func TestProtoSource_Errors(t *testing.T) {
	t.Parallel()
	_, _, err := NewProtoSource(fstest.MapFS{}).GetSchema(context.Background())
	require.ErrorContains(t, err, "no proto files given")

	_, _, err = NewProtoSource(fstest.MapFS{}, "missing.proto").GetSchema(context.Background())
	require.ErrorContains(t, err, "failed to compile missing.proto")

	fsys := fstest.MapFS{
		"broken.proto": &fstest.MapFile{Data: []byte(`syntax = "proto2"; message Rule { repeated Yaku yaku = 1; }`)},
	}
	_, _, err = NewProtoSource(fsys, "broken.proto").GetSchema(context.Background())
	require.ErrorContains(t, err, "Yaku")
}

func TestDescriptorSetSource(t *testing.T) {
	t.Parallel()
	descriptors, version, err := EmbeddedRuleSource().GetSchema(context.Background())
	require.NoError(t, err)
	data, err := proto.Marshal(descriptors)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "rule.binpb")
	require.NoError(t, os.WriteFile(path, data, 0600))

	source := NewDescriptorSetSource(path)
	assert.Equal(t, "descriptor-set:"+path, source.GetSchemaID())
	loaded, loadedVersion, err := source.GetSchema(context.Background())
	require.NoError(t, err)
	assert.True(t, proto.Equal(descriptors, loaded))
	assert.Equal(t, version, loadedVersion)

	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xff}, 0600))
	_, _, err = source.GetSchema(context.Background())
	require.ErrorContains(t, err, "is not a valid descriptor set")

	_, _, err = NewDescriptorSetSource(filepath.Join(t.TempDir(), "missing.binpb")).GetSchema(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}
