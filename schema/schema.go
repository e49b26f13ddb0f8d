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

// Package schema embeds the mahjong rule schema so that rules can be
// converted without generated code or an external schema registry.
package schema

import (
	"embed"
)

const (
	// RuleFile is the path of the rule schema inside [FS].
	RuleFile = "mahjong_rule.proto"
	// RuleMessageName is the fully-qualified name of the top-level rule message.
	RuleMessageName = "ydec.mahjong.Rule"
)

// FS holds the embedded .proto sources.
//
//go:embed mahjong_rule.proto
var FS embed.FS //nolint:gochecknoglobals
