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
	"fmt"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Converter allows callers to convert byte payloads from one format to another.
type Converter struct {
	// Resolver is used to look up the message type being converted and, for
	// the JSON and text formats, to expand google.protobuf.Any messages and
	// extensions. See [NewResolver].
	Resolver Resolver
	// InputFormat handles unmarshaling bytes from the expected input format.
	// You can use a [proto.UnmarshalOptions], [protojson.UnmarshalOptions],
	// or [prototext.UnmarshalOptions] wrapped by one of the helpers in this
	// package, or supply your own custom format that implements the
	// [InputFormat] interface.
	InputFormat InputFormat
	// OutputFormat handles marshaling to bytes in the desired output format.
	// See [FormatByName] for the formats used by the command line tool.
	OutputFormat OutputFormat
}

// NewMessage returns a new, empty message of the named type.
func (c *Converter) NewMessage(messageName string) (*dynamicpb.Message, error) {
	mt, err := c.Resolver.FindMessageByName(protoreflect.FullName(messageName))
	if err != nil {
		return nil, errors.Wrapf(err, "message_name '%s' is not found in proto", messageName)
	}
	return dynamicpb.NewMessage(mt.Descriptor()), nil
}

// Unmarshal decodes inputData, which must be in the input format, into a
// fresh message of the named type.
func (c *Converter) Unmarshal(messageName string, inputData []byte) (*dynamicpb.Message, error) {
	msg, err := c.NewMessage(messageName)
	if err != nil {
		return nil, err
	}
	if err := c.InputFormat.WithResolver(c.Resolver).Unmarshal(inputData, msg); err != nil {
		return nil, fmt.Errorf("input_data cannot be unmarshaled to %s in %s: %w", messageName, c.InputFormat, err)
	}
	return msg, nil
}

// Marshal encodes msg in the output format.
func (c *Converter) Marshal(msg proto.Message) ([]byte, error) {
	data, err := c.OutputFormat.WithResolver(c.Resolver).Marshal(msg)
	if err != nil {
		return nil, errors.Wrapf(err, "message cannot be marshaled to %s", c.OutputFormat)
	}
	return data, nil
}

// ConvertMessage allows the caller to convert a given message data blob from
// one format to another by referring to a type schema for the blob.
func (c *Converter) ConvertMessage(messageName string, inputData []byte) ([]byte, error) {
	msg, err := c.Unmarshal(messageName, inputData)
	if err != nil {
		return nil, err
	}
	return c.Marshal(msg)
}
