// Copyright (C) 2025 nodecross
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/nodecross/nodex/internal/cose"
	"github.com/nodecross/nodex/internal/keyring"
)

// Poster sends one signed envelope to the studio, the capability trait
// behind spec §6's `POST /v1/metrics`. Exponential backoff on 5xx is the
// poster's responsibility (internal/studioclient), not the pipeline's:
// from here, Post either eventually succeeds or returns a terminal
// error (spec scenario S5's "500 then 200 on retry" case).
type Poster interface {
	Post(ctx context.Context, envelope []byte) error
}

// nowFunc is overridable in tests.
var nowFunc = time.Now

// Pipeline bundles the collector and sender tasks over one shared cache
// (spec §4.9's "two cooperatively scheduled tasks on one in-memory
// cache").
type Pipeline struct {
	Cache           *Cache
	Watcher         Watcher
	Poster          Poster
	SigningKey      keyring.KeyPair
	DID             string
	CollectInterval time.Duration
	SendInterval    time.Duration
	OnError         func(error) // optional, defaults to a no-op
}

func (p *Pipeline) onError(err error) {
	if p.OnError != nil {
		p.OnError(err)
	}
}

// CollectTask samples the watcher once per tick and pushes each sample
// individually (so its own timestamp is recorded at push time), exiting
// cleanly when ctx is cancelled (spec §4.9, §4.8's cooperative
// cancellation requirement).
func (p *Pipeline) CollectTask(ctx context.Context) {
	ticker := time.NewTicker(p.CollectInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics, err := p.Watcher.WatchMetrics()
			if err != nil {
				p.onError(fmt.Errorf("metrics: watch: %w", err))
				continue
			}
			now := nowFunc()
			for _, m := range metrics {
				p.Cache.Push(TimestampedMetric{Timestamp: now, Metric: m})
			}
		case <-ctx.Done():
			return
		}
	}
}

// SendTask drains the cache once per tick, greedy-packs it into one or
// more COSE envelopes, and posts each in order; the cache is cleared
// only once every envelope in the cycle has posted successfully (spec
// §4.9, scenario S5).
func (p *Pipeline) SendTask(ctx context.Context) {
	ticker := time.NewTicker(p.SendInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.sendOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) sendOnce(ctx context.Context) {
	items := p.Cache.Snapshot()
	if len(items) == 0 {
		return
	}
	batches, err := greedyPack(p.DID, items, MaxEnvelopePayloadBytes)
	if err != nil {
		p.onError(err)
		return
	}
	for _, batch := range batches {
		envelope, err := cose.SignMessage(p.SigningKey, p.DID, batch)
		if err != nil {
			p.onError(fmt.Errorf("metrics: sign envelope: %w", err))
			return
		}
		if err := p.Poster.Post(ctx, envelope); err != nil {
			p.onError(fmt.Errorf("%w: %v", ErrPostFailed, err))
			return
		}
	}
	p.Cache.Clear()
}
