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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const notedRuleText = `yaku {
  name: "立直"
  menzen_fan: 1
  note: "closed hands only"
}
yaku {
  name: "断么九"
  menzen_fan: 1
  kuisagari_fan: 1
  note: "kuitan allowed in this house"
}
`

func TestRedact(t *testing.T) {
	t.Parallel()
	updater := newTestUpdater(t, t.TempDir(), nil)
	rule, err := updater.ParseRule([]byte(notedRuleText))
	require.NoError(t, err)

	Redact(HasDebugRedactOption)(rule)

	yakuList := rule.Get(rule.Descriptor().Fields().ByName("yaku")).List()
	require.Equal(t, 2, yakuList.Len())
	for i := 0; i < yakuList.Len(); i++ {
		yaku := yakuList.Get(i).Message()
		fields := yaku.Descriptor().Fields()
		assert.False(t, yaku.Has(fields.ByName("note")))
		assert.True(t, yaku.Has(fields.ByName("name")))
		assert.True(t, yaku.Has(fields.ByName("menzen_fan")))
	}
}

func TestRedact_Predicate(t *testing.T) {
	t.Parallel()
	updater := newTestUpdater(t, t.TempDir(), nil)
	rule, err := updater.ParseRule([]byte(`yaku { name: "平和" yaku_condition { required_machi_type: RYANMEN } }`))
	require.NoError(t, err)

	var visited []protoreflect.Name
	Redact(func(fd protoreflect.FieldDescriptor) bool {
		visited = append(visited, fd.Name())
		return fd.Name() == "required_machi_type"
	})(rule)
	assert.ElementsMatch(t, []protoreflect.Name{"yaku", "name", "yaku_condition", "required_machi_type"}, visited)

	yaku := rule.Get(rule.Descriptor().Fields().ByName("yaku")).List().Get(0).Message()
	condition := yaku.Get(yaku.Descriptor().Fields().ByName("yaku_condition")).Message()
	assert.False(t, condition.Has(condition.Descriptor().Fields().ByName("required_machi_type")))
	assert.True(t, yaku.Has(yaku.Descriptor().Fields().ByName("yaku_condition")))
}

func TestUpdater_Filters(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeRuleText(t, root, notedRuleText)
	var echo bytes.Buffer
	config := DefaultUpdaterConfig(root, ruleResolver(t))
	config.Echo = &echo
	config.Filters = Filters{Redact(HasDebugRedactOption)}
	updater, err := NewUpdater(config)
	require.NoError(t, err)

	rule, err := updater.Run(testContext(t))
	require.NoError(t, err)
	assert.NotContains(t, echo.String(), "kuitan")
	require.NoError(t, updater.VerifyExport(rule))
	exported, err := updater.LoadRuleResource(updater.OutputPath())
	require.NoError(t, err)
	assertRulesEqual(t, rule, exported)

	unfiltered, err := newTestUpdater(t, t.TempDir(), nil).ParseRule([]byte(notedRuleText))
	require.NoError(t, err)
	assert.False(t, proto.Equal(unfiltered, exported))
}
