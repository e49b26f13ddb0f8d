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

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/caarlos0/env/v11"

	"github.com/ydec/rulepack"
	"github.com/ydec/rulepack/cache/filecache"
	memcachecache "github.com/ydec/rulepack/cache/memcache"
	"github.com/ydec/rulepack/cache/rediscache"
)

const (
	envPrefix      = "RULEPACK_"
	cacheKeyPrefix = "rulepack/"
	echoNone       = "none"

	// Memcached reads larger expirations as absolute Unix times.
	maxMemcacheTTL = 30 * 24 * time.Hour
)

var errUsage = errors.New("expected no arguments or exactly two: input output")

// config holds the command settings. Every field can be set from a
// RULEPACK_* environment variable; flags override the environment.
type config struct {
	RootDir    string `env:"ROOT_DIR" envDefault:"."`
	InputPath  string `env:"INPUT"`
	OutputPath string `env:"OUTPUT"`
	Message    string `env:"MESSAGE" envDefault:"ydec.mahjong.Rule"`

	ProtoDir      string   `env:"PROTO_DIR"`
	ProtoFiles    []string `env:"PROTO_FILES" envSeparator:","`
	DescriptorSet string   `env:"DESCRIPTOR_SET"`
	BufModule     string   `env:"BUF_MODULE"`
	BufVersion    string   `env:"BUF_VERSION"`
	BSRAddress    string   `env:"BSR_ADDRESS" envDefault:"https://api.buf.build"`

	CacheDir      string        `env:"CACHE_DIR"`
	MemcacheAddrs []string      `env:"MEMCACHE_ADDRS" envSeparator:","`
	RedisAddr     string        `env:"REDIS_ADDR"`
	CacheTTL      time.Duration `env:"CACHE_TTL"`

	EchoFormat    string        `env:"ECHO_FORMAT" envDefault:"text"`
	Redact        bool          `env:"REDACT"`
	Verify        bool          `env:"VERIFY"`
	Watch         bool          `env:"WATCH"`
	PollingPeriod time.Duration `env:"POLLING_PERIOD" envDefault:"2s"`
	Debug         bool          `env:"DEBUG"`
}

// parseConfig loads the environment, then flags and positional arguments.
// A nil environ reads the process environment.
func parseConfig(args []string, environ map[string]string, output io.Writer) (*config, error) {
	cfg := &config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix, Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("update-rule", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: update-rule [flags] [input output]\n\n")
		fmt.Fprintf(output, "Converts %s to %s under -root, or input to output when both are given.\n\n",
			rulepack.DefaultInputPath, rulepack.DefaultOutputPath)
		fs.PrintDefaults()
	}
	protoFiles := strings.Join(cfg.ProtoFiles, ",")
	memcacheAddrs := strings.Join(cfg.MemcacheAddrs, ",")
	fs.StringVar(&cfg.RootDir, "root", cfg.RootDir, "project root holding data/ and res/")
	fs.StringVar(&cfg.Message, "message", cfg.Message, "fully-qualified name of the rule message")
	fs.StringVar(&cfg.ProtoDir, "proto-dir", cfg.ProtoDir, "compile the schema from .proto files in this directory")
	fs.StringVar(&protoFiles, "proto-files", protoFiles, "comma-separated .proto files under -proto-dir")
	fs.StringVar(&cfg.DescriptorSet, "descriptor-set", cfg.DescriptorSet, "read the schema from a binary FileDescriptorSet")
	fs.StringVar(&cfg.BufModule, "buf-module", cfg.BufModule, "download the schema from this Buf Schema Registry module")
	fs.StringVar(&cfg.BufVersion, "buf-version", cfg.BufVersion, "module version, tag or draft (default: latest)")
	fs.StringVar(&cfg.BSRAddress, "bsr-address", cfg.BSRAddress, "base URL of the Buf Reflection API")
	fs.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "cache downloaded schemas in this directory")
	fs.StringVar(&memcacheAddrs, "memcache", memcacheAddrs, "cache downloaded schemas in memcached (comma-separated host:port)")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "cache downloaded schemas in redis (host:port)")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "expiry of schemas cached in memcached (at most 720h) or redis (0 = never)")
	fs.StringVar(&cfg.EchoFormat, "echo", cfg.EchoFormat, "format of the rule printed to stdout: text, json or none")
	fs.BoolVar(&cfg.Redact, "redact", cfg.Redact, "drop fields marked debug_redact (such as yaku notes) from the output")
	fs.BoolVar(&cfg.Verify, "verify", cfg.Verify, "read the exported resource back and compare it with the parsed rule")
	fs.BoolVar(&cfg.Watch, "watch", cfg.Watch, "keep converting whenever the input changes")
	fs.DurationVar(&cfg.PollingPeriod, "poll", cfg.PollingPeriod, "how often -watch checks the input")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.ProtoFiles = splitList(protoFiles)
	cfg.MemcacheAddrs = splitList(memcacheAddrs)

	switch fs.NArg() {
	case 0:
	case 2:
		cfg.InputPath, cfg.OutputPath = fs.Arg(0), fs.Arg(1)
	default:
		fs.Usage()
		return nil, errUsage
	}
	if cfg.InputPath == "" {
		cfg.InputPath = filepath.Join(cfg.RootDir, rulepack.DefaultInputPath)
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = filepath.Join(cfg.RootDir, rulepack.DefaultOutputPath)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *config) validate() error {
	sources := 0
	for _, set := range []bool{c.ProtoDir != "", c.DescriptorSet != "", c.BufModule != ""} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return errors.New("-proto-dir, -descriptor-set and -buf-module are mutually exclusive")
	}
	if c.ProtoDir != "" && len(c.ProtoFiles) == 0 {
		return errors.New("-proto-dir requires -proto-files")
	}
	caches := 0
	for _, set := range []bool{c.CacheDir != "", len(c.MemcacheAddrs) > 0, c.RedisAddr != ""} {
		if set {
			caches++
		}
	}
	if caches > 1 {
		return errors.New("-cache-dir, -memcache and -redis are mutually exclusive")
	}
	if c.CacheTTL < 0 {
		return errors.New("-cache-ttl cannot be negative")
	}
	if len(c.MemcacheAddrs) > 0 && c.CacheTTL > maxMemcacheTTL {
		return fmt.Errorf("-cache-ttl %v exceeds the memcached limit of %v", c.CacheTTL, maxMemcacheTTL)
	}
	switch c.EchoFormat {
	case rulepack.FormatText, rulepack.FormatJSON, echoNone:
	default:
		return fmt.Errorf("-echo: unknown format %q (want %s, %s or %s)", c.EchoFormat, rulepack.FormatText, rulepack.FormatJSON, echoNone)
	}
	if c.Watch && c.Verify {
		return errors.New("-verify cannot be combined with -watch")
	}
	return nil
}

func (c *config) schemaSource() rulepack.SchemaSource {
	switch {
	case c.ProtoDir != "":
		return rulepack.NewProtoSource(os.DirFS(c.ProtoDir), c.ProtoFiles...)
	case c.DescriptorSet != "":
		return rulepack.NewDescriptorSetSource(c.DescriptorSet)
	case c.BufModule != "":
		client := rulepack.NewFileDescriptorSetServiceClient(nil, c.BSRAddress, "")
		return rulepack.NewBSRSource(client, c.BufModule, c.BufVersion, c.Message)
	default:
		return rulepack.EmbeddedRuleSource()
	}
}

// schemaCache returns the configured cache, or nil, and a function
// releasing its connections.
func (c *config) schemaCache() (rulepack.Cache, func(), error) {
	noop := func() {}
	switch {
	case c.CacheDir != "":
		cache, err := filecache.New(filecache.Config{Path: c.CacheDir})
		return cache, noop, err
	case len(c.MemcacheAddrs) > 0:
		cache, err := memcachecache.New(memcachecache.Config{
			Client:            memcache.New(c.MemcacheAddrs...),
			KeyPrefix:         cacheKeyPrefix,
			ExpirationSeconds: int32(c.CacheTTL / time.Second),
		})
		return cache, noop, err
	case c.RedisAddr != "":
		pool := rediscache.NewPool(c.RedisAddr)
		cache, err := rediscache.New(rediscache.Config{
			Client:     pool,
			KeyPrefix:  cacheKeyPrefix,
			Expiration: c.CacheTTL,
		})
		return cache, func() { _ = pool.Close() }, err
	default:
		return nil, noop, nil
	}
}

func (c *config) echoFormat() rulepack.OutputFormat {
	if c.EchoFormat == echoNone {
		return nil
	}
	_, out, _ := rulepack.FormatByName(c.EchoFormat)
	return out
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
