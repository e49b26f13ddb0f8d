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
	"crypto/sha256"
	"time"

	"github.com/rs/zerolog"
)

// Watch converts the rule once and then keeps polling the input file,
// converting it again every time its contents change. Each conversion is a
// complete [Updater.Run]; a failed conversion is logged and retried on the
// next change. Watch blocks until ctx is cancelled and then returns nil.
//
// The input is considered changed when its SHA-256 digest differs from the
// one seen at the last attempt, so touching the file without editing it does
// not trigger a conversion.
func (u *Updater) Watch(ctx context.Context, config *WatchConfig) error {
	if config == nil {
		config = &WatchConfig{}
	}
	if err := config.validate(); err != nil {
		return err
	}
	pollingPeriod := config.PollingPeriod
	if pollingPeriod == 0 {
		pollingPeriod = defaultPollingPeriod
	}
	jitter := config.Jitter
	if jitter == 0 {
		jitter = defaultJitter
	}
	logger := zerolog.Ctx(ctx)

	var lastDigest [sha256.Size]byte
	var seen, readFailing bool
	poll := func() {
		text, err := u.LoadRuleText()
		if err != nil {
			// Reported once per failure streak, not on every tick.
			if !readFailing {
				logger.Error().Err(err).Str("path", u.inputPath).Msg("cannot read rule text")
				u.notify(config, err)
			}
			readFailing = true
			return
		}
		readFailing = false
		digest := sha256.Sum256(text)
		if seen && digest == lastDigest {
			return
		}
		lastDigest, seen = digest, true
		_, err = u.convert(ctx, text)
		if err != nil {
			logger.Error().Err(err).Str("path", u.inputPath).Msg("rule conversion failed")
		}
		u.notify(config, err)
	}

	poll()
	timer := time.NewTimer(addJitter(pollingPeriod, jitter))
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			if ctx.Err() != nil {
				// don't bother reading the file if context is done
				return nil
			}
			poll()
			timer.Reset(addJitter(pollingPeriod, jitter))
		case <-ctx.Done():
			return nil
		}
	}
}

func (u *Updater) notify(config *WatchConfig, err error) {
	if config.OnUpdate != nil {
		config.OnUpdate(err)
	}
}
