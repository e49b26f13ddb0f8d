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
	"io"
	"io/fs"
	"path/filepath"
	"time"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/ydec/rulepack/schema"
)

const (
	// DefaultInputPath is where the rule text lives, relative to the project root.
	DefaultInputPath = "data/rule.pb.txt"
	// DefaultOutputPath is where the binary resource is exported, relative
	// to the project root.
	DefaultOutputPath = "res/raw/rule.pb"

	defaultPollingPeriod = 2 * time.Second
	defaultJitter        = 0.1
)

// UpdaterConfig contains the configurable attributes of the [Updater].
type UpdaterConfig struct {
	// Resolver used to look up MessageName. Required; see [LoadSchema].
	Resolver Resolver
	// Fully-qualified name of the rule message. Defaults to
	// "ydec.mahjong.Rule".
	MessageName string
	// Path of the text-format rule. Required.
	InputPath string
	// Path of the binary resource to write. Required.
	OutputPath string
	// If non-nil, receives the parsed rule in EchoFormat followed by a
	// confirmation line naming the output path.
	Echo io.Writer
	// Format used for Echo. Defaults to multi-line text format.
	EchoFormat OutputFormat
	// Applied in order to every parsed rule before it is echoed and
	// exported. Optional.
	Filters Filters
	// Mode of a newly written resource file. Defaults to 0644. Must include
	// the owner read and write bits.
	FileMode fs.FileMode
}

// DefaultUpdaterConfig returns a configuration using the conventional
// project layout below rootDir: the rule text in data/rule.pb.txt and the
// exported resource in res/raw/rule.pb.
func DefaultUpdaterConfig(rootDir string, resolver Resolver) *UpdaterConfig {
	return &UpdaterConfig{
		Resolver:    resolver,
		MessageName: schema.RuleMessageName,
		InputPath:   filepath.Join(rootDir, DefaultInputPath),
		OutputPath:  filepath.Join(rootDir, DefaultOutputPath),
	}
}

func (c *UpdaterConfig) validate() error {
	if c.Resolver == nil {
		return fmt.Errorf("resolver not provided")
	}
	if c.MessageName != "" && !protoreflect.FullName(c.MessageName).IsValid() {
		return fmt.Errorf("%q is not a valid message name", c.MessageName)
	}
	if c.InputPath == "" {
		return fmt.Errorf("input path not provided")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path not provided")
	}
	if filepath.Clean(c.InputPath) == filepath.Clean(c.OutputPath) {
		return fmt.Errorf("input and output paths are the same: %s", c.InputPath)
	}
	if c.FileMode != 0 && (c.FileMode&0600) != 0600 {
		return fmt.Errorf("mode %#o must include bits 0600", c.FileMode)
	}
	return nil
}

// WatchConfig contains the configurable attributes of [Updater.Watch].
type WatchConfig struct {
	// How often the input file is checked for changes. If unset and left
	// zero, a default period of 2 seconds is used. Must not be negative.
	PollingPeriod time.Duration
	// Fraction of PollingPeriod by which each wait is randomly lengthened
	// or shortened, between 0 and 1. Defaults to 0.1 when zero.
	Jitter float64
	// If non-nil, called after every conversion attempt the watcher makes,
	// with the error of that attempt.
	OnUpdate func(error)
}

func (c *WatchConfig) validate() error {
	if c.PollingPeriod < 0 {
		return fmt.Errorf("polling period duration cannot be negative")
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		return fmt.Errorf("jitter %v must be between 0 and 1", c.Jitter)
	}
	return nil
}
