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
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Filters is a slice of filters. They are applied in order.
type Filters []Filter

func (f Filters) apply(message protoreflect.Message) {
	for _, filter := range f {
		filter(message)
	}
}

// Filter alters a parsed rule in place. An [Updater] applies its filters
// after parsing, so the echo, the resource and [Updater.VerifyExport] all
// see the filtered rule.
type Filter func(protoreflect.Message)

// Redact returns a Filter that clears every field, at any depth, for which
// predicate returns true.
func Redact(predicate func(protoreflect.FieldDescriptor) bool) Filter {
	return func(msg protoreflect.Message) {
		redactMessage(msg, predicate)
	}
}

// HasDebugRedactOption is a predicate for [Redact] that matches fields
// marked with the debug_redact option, such as authoring notes that should
// not ship in the resource:
//
//	message Yaku {
//	  optional string name = 1;
//	  optional string note = 9 [debug_redact = true];
//	}
func HasDebugRedactOption(fd protoreflect.FieldDescriptor) bool {
	opts, ok := fd.Options().(*descriptorpb.FieldOptions)
	return ok && opts.GetDebugRedact()
}

func redactMessage(message protoreflect.Message, redaction func(protoreflect.FieldDescriptor) bool) {
	message.Range(
		func(descriptor protoreflect.FieldDescriptor, value protoreflect.Value) bool {
			if redaction(descriptor) {
				message.Clear(descriptor)
				return true
			}
			switch {
			case descriptor.IsMap() && isMessage(descriptor.MapValue()):
				value.Map().Range(func(_ protoreflect.MapKey, mapValue protoreflect.Value) bool {
					redactMessage(mapValue.Message(), redaction)
					return true
				})
			case descriptor.IsList() && isMessage(descriptor):
				list := value.List()
				for i := 0; i < list.Len(); i++ {
					redactMessage(list.Get(i).Message(), redaction)
				}
			case !descriptor.IsMap() && isMessage(descriptor):
				// map fields are messages too (synthetic entries)
				redactMessage(value.Message(), redaction)
			}
			return true
		},
	)
}

func isMessage(descriptor protoreflect.FieldDescriptor) bool {
	return descriptor.Kind() == protoreflect.MessageKind ||
		descriptor.Kind() == protoreflect.GroupKind
}
