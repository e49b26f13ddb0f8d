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

// Command update-rule converts the text-format mahjong rule of a project
// into the binary resource the game loads at startup.
//
//	update-rule [flags] [input output]
//
// With no arguments it reads data/rule.pb.txt under -root and writes
// res/raw/rule.pb. The parsed rule is echoed to stdout; logs go to stderr.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ydec/rulepack"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], nil, os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 on success, 1 when the conversion
// fails and 2 on a usage error.
func run(ctx context.Context, args []string, environ map[string]string, stdout, stderr io.Writer) int {
	cfg, err := parseConfig(args, environ, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	logger := newLogger(stderr, cfg.Debug)
	ctx = logger.WithContext(ctx)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := convert(ctx, cfg, stdout); err != nil {
		logger.Error().Err(err).Msg("update-rule failed")
		return 1
	}
	return 0
}

func convert(ctx context.Context, cfg *config, stdout io.Writer) error {
	logger := zerolog.Ctx(ctx)
	cache, closeCache, err := cfg.schemaCache()
	if err != nil {
		return fmt.Errorf("schema cache: %w", err)
	}
	defer closeCache()

	loaded, err := rulepack.LoadSchema(ctx, &rulepack.SchemaLoaderConfig{
		Source: cfg.schemaSource(),
		Cache:  cache,
	})
	if err != nil {
		return err
	}
	if loaded.FromCache {
		logger.Warn().Msg("using cached schema")
	}

	updaterConfig := &rulepack.UpdaterConfig{
		Resolver:    loaded.Resolver,
		MessageName: cfg.Message,
		InputPath:   cfg.InputPath,
		OutputPath:  cfg.OutputPath,
	}
	if cfg.Redact {
		updaterConfig.Filters = rulepack.Filters{rulepack.Redact(rulepack.HasDebugRedactOption)}
	}
	if format := cfg.echoFormat(); format != nil {
		updaterConfig.Echo = stdout
		updaterConfig.EchoFormat = format
	}
	updater, err := rulepack.NewUpdater(updaterConfig)
	if err != nil {
		return err
	}

	if cfg.Watch {
		logger.Info().Str("input", updater.InputPath()).Dur("poll", cfg.PollingPeriod).Msg("watching rule")
		return updater.Watch(ctx, &rulepack.WatchConfig{PollingPeriod: cfg.PollingPeriod})
	}
	rule, err := updater.Run(ctx)
	if err != nil {
		return err
	}
	if cfg.Verify {
		if err := updater.VerifyExport(rule); err != nil {
			return err
		}
		logger.Info().Str("path", updater.OutputPath()).Msg("export verified")
	}
	return nil
}

func newLogger(out io.Writer, debug bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
