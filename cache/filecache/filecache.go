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

// Package filecache provides an implementation of rulepack.Cache that keeps
// fetched schemas as files in a directory, one file per cache key.
//
// This is the natural choice on a developer machine or a CI runner with a
// persistent cache volume: a schema downloaded once stays usable when the
// registry cannot be reached later.
package filecache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ydec/rulepack"
)

// Config represents the configuration parameters used to
// create a new file-system-backed cache.
type Config struct {
	// Required: the folder in which cached files live. It is created
	// if it does not exist.
	Path string
	// Defaults to "schema" if left empty. Joined to the sanitized cache
	// key with an underscore to form a file name.
	FilenamePrefix string
	// Defaults to ".binpb" if left empty.
	FilenameExtension string
	// The mode to use when creating new files in the cache directory.
	// Defaults to 0600 if left zero. Must include bits 0600.
	FileMode fs.FileMode
}

// New creates a new file-system-backed cache with the given
// configuration.
func New(config Config) (rulepack.Cache, error) {
	if config.Path == "" {
		return nil, errors.New("path cannot be empty")
	}
	path, err := filepath.Abs(config.Path)
	if err != nil {
		return nil, err
	}
	config.Path = path
	if config.FilenamePrefix == "" {
		config.FilenamePrefix = "schema"
	} else {
		config.FilenamePrefix = strings.TrimSuffix(config.FilenamePrefix, "_")
	}
	if config.FilenameExtension == "" {
		config.FilenameExtension = ".binpb"
	} else if !strings.HasPrefix(config.FilenameExtension, ".") {
		config.FilenameExtension = "." + config.FilenameExtension
	}
	if config.FileMode == 0 {
		config.FileMode = 0600
	} else if (config.FileMode & 0600) != 0600 {
		return nil, fmt.Errorf("mode %#o must include bits 0600", config.FileMode)
	}

	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", path)
	}
	return (*cache)(&config), nil
}

type cache Config

func (c *cache) Load(_ context.Context, key string) ([]byte, error) {
	return os.ReadFile(filepath.Join(c.Path, c.fileNameForKey(key)))
}

func (c *cache) Save(_ context.Context, key string, data []byte) error {
	fileName := filepath.Join(c.Path, c.fileNameForKey(key))
	if err := os.WriteFile(fileName, data, c.FileMode); err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("insufficient permission to write cache file in %s", c.Path)
		}
		return err
	}
	return nil
}

func (c *cache) fileNameForKey(key string) string {
	if key != "" {
		key = "_" + sanitize(key)
	}
	return c.FilenamePrefix + key + c.FilenameExtension
}

// sanitize keeps keys such as "buf.build/ydec/mahjong:main" usable as file
// names by percent-encoding everything outside [A-Za-z0-9._-].
func sanitize(s string) string {
	var builder strings.Builder
	hexWriter := hex.NewEncoder(&builder)
	var buf [1]byte
	for i, length := 0, len(s); i < length; i++ {
		char := s[i]
		switch {
		case char >= 'a' && char <= 'z',
			char >= 'A' && char <= 'Z',
			char >= '0' && char <= '9',
			char == '.' || char == '-' || char == '_':
			builder.WriteByte(char)
		default:
			builder.WriteByte('%')
			buf[0] = char
			_, _ = hexWriter.Write(buf[:])
		}
	}
	return builder.String()
}
