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
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/ydec/rulepack/schema"
)

// SchemaSource produces the descriptors needed to interpret a rule file.
type SchemaSource interface {
	// GetSchema returns a self-contained descriptor set and a version string
	// identifying its contents.
	GetSchema(ctx context.Context) (descriptors *descriptorpb.FileDescriptorSet, version string, err error)
	// GetSchemaID returns a string that identifies where the schema comes
	// from. It is stable across calls and used to form cache keys.
	GetSchemaID() string
}

// NewProtoSource returns a SchemaSource that compiles the named .proto files,
// and everything they import, from fsys. Imports of the well-known
// "google/protobuf/*.proto" files resolve without being present in fsys.
func NewProtoSource(fsys fs.FS, files ...string) SchemaSource {
	return &protoSource{fsys: fsys, files: files}
}

// EmbeddedRuleSource returns a SchemaSource over the rule schema that ships
// with this module. See package schema.
func EmbeddedRuleSource() SchemaSource {
	return NewProtoSource(schema.FS, schema.RuleFile)
}

type protoSource struct {
	fsys  fs.FS
	files []string
}

func (p *protoSource) GetSchema(_ context.Context) (*descriptorpb.FileDescriptorSet, string, error) {
	if len(p.files) == 0 {
		return nil, "", errors.New("no proto files given")
	}
	parser := protoparse.Parser{
		Accessor: func(filename string) (io.ReadCloser, error) {
			return p.fsys.Open(filename)
		},
	}
	fileDescriptors, err := parser.ParseFiles(p.files...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to compile %s: %w", strings.Join(p.files, ", "), err)
	}
	descriptors := desc.ToFileDescriptorSet(fileDescriptors...)
	version, err := descriptorDigest(descriptors)
	if err != nil {
		return nil, "", err
	}
	return descriptors, version, nil
}

func (p *protoSource) GetSchemaID() string {
	return "proto:" + strings.Join(p.files, ",")
}

// NewDescriptorSetSource returns a SchemaSource that reads a binary-encoded
// google.protobuf.FileDescriptorSet from path, such as the output of
// `buf build -o rule.binpb` or `protoc --include_imports -o`.
func NewDescriptorSetSource(path string) SchemaSource {
	return descriptorSetSource(path)
}

type descriptorSetSource string

func (d descriptorSetSource) GetSchema(_ context.Context) (*descriptorpb.FileDescriptorSet, string, error) {
	data, err := os.ReadFile(string(d))
	if err != nil {
		return nil, "", err
	}
	var descriptors descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(data, &descriptors); err != nil {
		return nil, "", fmt.Errorf("%s is not a valid descriptor set: %w", string(d), err)
	}
	version, err := descriptorDigest(&descriptors)
	if err != nil {
		return nil, "", err
	}
	return &descriptors, version, nil
}

func (d descriptorSetSource) GetSchemaID() string {
	return "descriptor-set:" + string(d)
}

// descriptorDigest identifies a set by its contents, so a schema change on
// disk shows up as a new version.
func descriptorDigest(descriptors *descriptorpb.FileDescriptorSet) (string, error) {
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(descriptors)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:6]), nil
}
