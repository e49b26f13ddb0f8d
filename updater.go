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
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/go-cmp/cmp"
	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/testing/protocmp"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/ydec/rulepack/schema"
)

// ErrRuleMismatch is returned by [Updater.VerifyExport] when the exported
// resource does not decode to the rule that was parsed from text.
var ErrRuleMismatch = errors.New("exported rule does not match parsed rule")

// Updater converts one text-format rule definition into one binary resource
// file. All operations are synchronous; an Updater may be reused for any
// number of conversions but must not be used from multiple goroutines at
// once.
type Updater struct {
	textToBinary Converter
	messageName  string
	inputPath    string
	outputPath   string
	echo         io.Writer
	echoFormat   OutputFormat
	filters      Filters
	fileMode     fs.FileMode
}

// NewUpdater creates a new [Updater] for the given [UpdaterConfig].
func NewUpdater(config *UpdaterConfig) (*Updater, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	messageName := config.MessageName
	if messageName == "" {
		messageName = schema.RuleMessageName
	}
	// Fail early rather than after reading the input.
	if _, err := config.Resolver.FindMessageByName(protoreflect.FullName(messageName)); err != nil {
		return nil, errors.Wrapf(err, "message_name '%s' is not found in proto", messageName)
	}
	echoFormat := config.EchoFormat
	if echoFormat == nil {
		echoFormat = TextOutputFormat(prototext.MarshalOptions{Multiline: true})
	}
	fileMode := config.FileMode
	if fileMode == 0 {
		fileMode = 0644
	}
	return &Updater{
		textToBinary: Converter{
			Resolver:     config.Resolver,
			InputFormat:  TextInputFormat(prototext.UnmarshalOptions{}),
			OutputFormat: BinaryOutputFormat(proto.MarshalOptions{Deterministic: true}),
		},
		messageName: messageName,
		inputPath:   config.InputPath,
		outputPath:  config.OutputPath,
		echo:        config.Echo,
		echoFormat:  echoFormat,
		filters:     config.Filters,
		fileMode:    fileMode,
	}, nil
}

// InputPath returns the path of the text-format rule.
func (u *Updater) InputPath() string {
	return u.inputPath
}

// OutputPath returns the path of the exported binary resource.
func (u *Updater) OutputPath() string {
	return u.outputPath
}

// LoadRuleText reads the full contents of the input file.
func (u *Updater) LoadRuleText() ([]byte, error) {
	return os.ReadFile(u.inputPath)
}

// ParseRule merges text into a fresh, empty rule message. Unknown fields and
// anything else the text-format grammar rejects are errors.
func (u *Updater) ParseRule(text []byte) (*dynamicpb.Message, error) {
	return u.textToBinary.Unmarshal(u.messageName, text)
}

// EchoRule prints rule to the configured echo writer for inspection. It does
// nothing if no writer was configured.
func (u *Updater) EchoRule(rule proto.Message) error {
	if u.echo == nil {
		return nil
	}
	data, err := u.echoFormat.WithResolver(u.textToBinary.Resolver).Marshal(rule)
	if err != nil {
		return errors.Wrapf(err, "rule cannot be printed as %s", u.echoFormat)
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	_, err = u.echo.Write(data)
	return err
}

// ExportRule serializes rule to the binary wire format and writes it to the
// output path, replacing any existing file. The write is atomic: readers of
// the output path see either the previous file or the complete new one.
func (u *Updater) ExportRule(ctx context.Context, rule proto.Message) error {
	data, err := u.textToBinary.Marshal(rule)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(u.outputPath, data, u.fileMode); err != nil {
		return fmt.Errorf("failed to export rule: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("path", u.outputPath).Int("bytes", len(data)).Msg("rule exported")
	if u.echo != nil {
		if _, err := fmt.Fprintf(u.echo, "Exported to %s\n", u.outputPath); err != nil {
			return err
		}
	}
	return nil
}

// Run performs a full conversion: load the rule text, parse it, echo it and
// export it. Nothing is written if loading or parsing fails. The parsed
// rule is returned on success.
func (u *Updater) Run(ctx context.Context) (*dynamicpb.Message, error) {
	logger := zerolog.Ctx(ctx)
	text, err := u.LoadRuleText()
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("path", u.inputPath).Int("bytes", len(text)).Msg("rule text loaded")
	return u.convert(ctx, text)
}

func (u *Updater) convert(ctx context.Context, text []byte) (*dynamicpb.Message, error) {
	rule, err := u.ParseRule(text)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", u.inputPath)
	}
	u.filters.apply(rule)
	if err := u.EchoRule(rule); err != nil {
		return nil, err
	}
	if err := u.ExportRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// LoadRuleResource decodes the binary resource at path into a rule message,
// the same way the consuming application does.
func (u *Updater) LoadRuleResource(path string) (*dynamicpb.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	binary := Converter{
		Resolver:    u.textToBinary.Resolver,
		InputFormat: BinaryInputFormat(proto.UnmarshalOptions{}),
	}
	return binary.Unmarshal(u.messageName, data)
}

// VerifyExport reads back the exported resource and checks that it decodes
// to rule. It returns an error wrapping [ErrRuleMismatch] if it does not.
func (u *Updater) VerifyExport(rule proto.Message) error {
	exported, err := u.LoadRuleResource(u.outputPath)
	if err != nil {
		return fmt.Errorf("failed to read back %s: %w", u.outputPath, err)
	}
	if !proto.Equal(rule, exported) {
		diff := cmp.Diff(rule, exported, protocmp.Transform())
		return fmt.Errorf("%w: %s (-parsed +exported):\n%s", ErrRuleMismatch, u.outputPath, diff)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return renameio.WriteFile(path, data, mode)
}
