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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testDid = "did:webvh:scid:example.com:device"

// TestGreedyPackBoundary mirrors scenario S5 (three equal-size items,
// a budget that fits exactly two): the budget is derived from the
// items' own measured encoded size rather than hardcoded, so the test
// models the same packing boundary the spec's literal 400_000/900_000
// figures exercise without depending on exact CBOR byte counts.
func TestGreedyPackBoundary(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []TimestampedMetric{
		{Timestamp: ts, Metric: Metric{Type: MetricTypeCPUUsage, Value: 1}},
		{Timestamp: ts, Metric: Metric{Type: MetricTypeCPUUsage, Value: 2}},
		{Timestamp: ts, Metric: Metric{Type: MetricTypeCPUUsage, Value: 3}},
	}
	twoItemSize, err := envelopePayloadSize(testDid, items[:2])
	require.NoError(t, err)

	batches, err := greedyPack(testDid, items, twoItemSize)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	require.Len(t, batches[0], 2)
	require.Len(t, batches[1], 1)
	require.Equal(t, items[0], batches[0][0])
	require.Equal(t, items[1], batches[0][1])
	require.Equal(t, items[2], batches[1][0])
}

func TestGreedyPackSingleOversizedItemFailsBatch(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []TimestampedMetric{
		{Timestamp: ts, Metric: Metric{Type: MetricTypeCPUUsage, Value: 1}},
	}
	singleSize, err := envelopePayloadSize(testDid, items)
	require.NoError(t, err)

	_, err = greedyPack(testDid, items, singleSize-1)
	require.ErrorIs(t, err, ErrItemTooLarge)
}

func TestGreedyPackEmpty(t *testing.T) {
	batches, err := greedyPack(testDid, nil, MaxEnvelopePayloadBytes)
	require.NoError(t, err)
	require.Nil(t, batches)
}
