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

// Package rulepack turns a human-authored mahjong rule definition, written in
// the protobuf text format, into the compact binary resource that game clients
// load at startup.
//
// The rule message is handled dynamically: its schema is compiled at run time
// from .proto sources (the schema embedded in package schema by default), read
// from a FileDescriptorSet produced by a build, or downloaded from the Buf
// Schema Registry. No generated code is required, so the schema can evolve
// without rebuilding this tool.
//
// An [Updater] performs the conversion in a single sequential pass: load the
// rule text, parse it, echo the canonical text form for inspection and export
// the binary form to the resource directory. The binary output is
// deterministic, so converting an unchanged input twice produces identical
// bytes.
//
// The [Converter] underneath supports Binary, JSON and Text formats in both
// directions and can be used on its own.
package rulepack
