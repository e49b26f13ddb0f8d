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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/testing/protocmp"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/ydec/rulepack/schema"
)

func TestConverter_ConvertMessage(t *testing.T) {
	t.Parallel()
	resolver := ruleResolver(t)
	message := sampleRule(t, resolver)

	formats := []struct {
		name         string
		outputFormat OutputFormat
		inputFormat  InputFormat
	}{
		{
			name:         "binary",
			outputFormat: BinaryOutputFormat(proto.MarshalOptions{}),
			inputFormat:  BinaryInputFormat(proto.UnmarshalOptions{}),
		},
		{
			name:         "json",
			outputFormat: JSONOutputFormat(protojson.MarshalOptions{}),
			inputFormat:  JSONInputFormat(protojson.UnmarshalOptions{}),
		},
		{
			name:         "text",
			outputFormat: TextOutputFormat(prototext.MarshalOptions{}),
			inputFormat:  TextInputFormat(prototext.UnmarshalOptions{}),
		},
		{
			name:         "TextWithoutResolver",
			outputFormat: OutputFormatWithoutResolver(prototext.MarshalOptions{}),
			inputFormat:  InputFormatWithoutResolver(prototext.UnmarshalOptions{}),
		},
		{
			name:         "custom",
			outputFormat: marshalProtoJSONWithResolver{},
			inputFormat:  unmarshalProtoJSONWithResolver{},
		},
	}

	for _, inFormat := range formats {
		inputFormat := inFormat
		for _, outFormat := range formats {
			outputFormat := outFormat
			t.Run(fmt.Sprintf("%v_to_%v", inputFormat.name, outputFormat.name), func(t *testing.T) {
				t.Parallel()
				data, err := inputFormat.outputFormat.WithResolver(nil).Marshal(message)
				require.NoError(t, err)

				converter := Converter{
					Resolver:     resolver,
					InputFormat:  inputFormat.inputFormat,
					OutputFormat: outputFormat.outputFormat,
				}
				resp, err := converter.ConvertMessage(schema.RuleMessageName, data)
				require.NoError(t, err)
				clone := message.New().Interface()
				err = outputFormat.inputFormat.WithResolver(nil).Unmarshal(resp, clone)
				require.NoError(t, err)
				diff := cmp.Diff(message, clone, protocmp.Transform())
				if diff != "" {
					t.Errorf("round-trip failure (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestConverter_Errors(t *testing.T) {
	t.Parallel()
	converter := Converter{
		Resolver:     ruleResolver(t),
		InputFormat:  TextInputFormat(prototext.UnmarshalOptions{}),
		OutputFormat: BinaryOutputFormat(proto.MarshalOptions{}),
	}
	_, err := converter.ConvertMessage("ydec.mahjong.NoSuchMessage", nil)
	require.ErrorContains(t, err, "message_name 'ydec.mahjong.NoSuchMessage' is not found in proto")

	_, err = converter.ConvertMessage(schema.RuleMessageName, []byte(`yaku { han: 1 }`))
	require.ErrorContains(t, err, "cannot be unmarshaled to ydec.mahjong.Rule in text")
}

func TestFormatByName(t *testing.T) {
	t.Parallel()
	resolver := ruleResolver(t)
	message := sampleRule(t, resolver)
	for _, name := range []string{"binary", "JSON", "text", "textproto", "pb"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			in, out, err := FormatByName(name)
			require.NoError(t, err)
			data, err := out.WithResolver(resolver).Marshal(message)
			require.NoError(t, err)
			clone := message.New().Interface()
			require.NoError(t, in.WithResolver(resolver).Unmarshal(data, clone))
			assert.True(t, proto.Equal(message, clone))
		})
	}
	_, _, err := FormatByName("yaml")
	require.ErrorContains(t, err, `unknown format "yaml"`)
}

type marshalProtoJSONWithResolver struct {
	protojson.MarshalOptions
}

func (p marshalProtoJSONWithResolver) WithResolver(r Resolver) Marshaler {
	return protojson.MarshalOptions{
		Resolver: r,
	}
}

type unmarshalProtoJSONWithResolver struct {
	protojson.UnmarshalOptions
}

func (p unmarshalProtoJSONWithResolver) WithResolver(r Resolver) Unmarshaler {
	return protojson.UnmarshalOptions{
		Resolver: r,
	}
}

// ruleResolver compiles the embedded rule schema.
func ruleResolver(t *testing.T) Resolver {
	t.Helper()
	descriptors, _, err := EmbeddedRuleSource().GetSchema(context.Background())
	require.NoError(t, err)
	resolver, err := NewResolver(descriptors)
	require.NoError(t, err)
	return resolver
}

// sampleRule builds a rule with two yaku, one of them nested conditions,
// through reflection so it does not depend on the text parser under test.
func sampleRule(t *testing.T, resolver Resolver) *dynamicpb.Message {
	t.Helper()
	ruleType, err := resolver.FindMessageByName(schema.RuleMessageName)
	require.NoError(t, err)
	rule := dynamicpb.NewMessage(ruleType.Descriptor())
	yakuField := ruleType.Descriptor().Fields().ByName("yaku")
	yakuList := rule.Mutable(yakuField).List()

	richi := yakuList.NewElement().Message()
	yakuFields := richi.Descriptor().Fields()
	richi.Set(yakuFields.ByName("name"), protoreflect.ValueOfString("立直"))
	richi.Set(yakuFields.ByName("menzen_fan"), protoreflect.ValueOfInt32(1))
	condition := richi.Mutable(yakuFields.ByName("yaku_condition")).Message()
	richiType, err := resolver.FindEnumByName("ydec.mahjong.RichiType")
	require.NoError(t, err)
	condition.Set(
		condition.Descriptor().Fields().ByName("required_richi_type"),
		protoreflect.ValueOfEnum(richiType.Descriptor().Values().ByName("RICHI").Number()),
	)
	yakuList.Append(protoreflect.ValueOfMessage(richi))

	daburu := yakuList.NewElement().Message()
	daburu.Set(yakuFields.ByName("name"), protoreflect.ValueOfString("ダブル立直"))
	daburu.Set(yakuFields.ByName("menzen_fan"), protoreflect.ValueOfInt32(2))
	daburu.Set(yakuFields.ByName("force_fu_ron"), protoreflect.ValueOfInt32(30))
	uppers := daburu.Mutable(yakuFields.ByName("upper_version_yaku_name")).List()
	uppers.Append(protoreflect.ValueOfString("天和"))
	yakuList.Append(protoreflect.ValueOfMessage(daburu))
	return rule
}
