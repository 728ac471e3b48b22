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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nodecross/nodex/internal/keyring"
)

type fakeWatcher struct {
	metrics []Metric
}

func (f *fakeWatcher) WatchMetrics() ([]Metric, error) {
	return f.metrics, nil
}

type fakePoster struct {
	err   error
	calls [][]byte
}

func (f *fakePoster) Post(_ context.Context, envelope []byte) error {
	f.calls = append(f.calls, envelope)
	return f.err
}

func TestCollectTaskStopsOnCancel(t *testing.T) {
	cache := NewCache(10)
	watcher := &fakeWatcher{metrics: []Metric{{Type: MetricTypeCPUUsage, Value: 1}}}
	p := &Pipeline{Cache: cache, Watcher: watcher, CollectInterval: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.CollectTask(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CollectTask did not stop on cancellation")
	}
	require.Greater(t, cache.Len(), 0)
}

func TestSendOnceClearsCacheOnSuccess(t *testing.T) {
	cache := NewCache(10)
	kp, err := keyring.GenerateEd25519()
	require.NoError(t, err)
	cache.Push(TimestampedMetric{Timestamp: time.Now(), Metric: Metric{Type: MetricTypeCPUUsage, Value: 1}})

	poster := &fakePoster{}
	p := &Pipeline{Cache: cache, Poster: poster, SigningKey: kp, DID: testDid}
	p.sendOnce(context.Background())

	require.Len(t, poster.calls, 1)
	require.Equal(t, 0, cache.Len())
}

func TestSendOnceKeepsCacheOnPostFailure(t *testing.T) {
	cache := NewCache(10)
	kp, err := keyring.GenerateEd25519()
	require.NoError(t, err)
	cache.Push(TimestampedMetric{Timestamp: time.Now(), Metric: Metric{Type: MetricTypeCPUUsage, Value: 1}})

	poster := &fakePoster{err: errors.New("server error")}
	p := &Pipeline{Cache: cache, Poster: poster, SigningKey: kp, DID: testDid}
	p.sendOnce(context.Background())

	require.Equal(t, 1, cache.Len())
}

func TestSendOnceNoopOnEmptyCache(t *testing.T) {
	cache := NewCache(10)
	kp, err := keyring.GenerateEd25519()
	require.NoError(t, err)
	poster := &fakePoster{}
	p := &Pipeline{Cache: cache, Poster: poster, SigningKey: kp, DID: testDid}
	p.sendOnce(context.Background())
	require.Empty(t, poster.calls)
}
