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

func TestCacheDropsOldestOnOverflow(t *testing.T) {
	c := NewCache(3)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		c.Push(TimestampedMetric{Timestamp: base, Metric: Metric{Type: MetricTypeCPUUsage, Value: float64(i)}})
	}
	snapshot := c.Snapshot()
	require.Len(t, snapshot, 3)
	require.Equal(t, float64(2), snapshot[0].Metric.Value)
	require.Equal(t, float64(3), snapshot[1].Metric.Value)
	require.Equal(t, float64(4), snapshot[2].Metric.Value)
}

func TestCacheSnapshotIsNonDestructive(t *testing.T) {
	c := NewCache(10)
	c.Push(TimestampedMetric{Metric: Metric{Type: MetricTypeMemoryUsage, Value: 1}})
	first := c.Snapshot()
	second := c.Snapshot()
	require.Equal(t, first, second)
	require.Equal(t, 1, c.Len())
}

func TestCacheClear(t *testing.T) {
	c := NewCache(10)
	c.Push(TimestampedMetric{Metric: Metric{Type: MetricTypeMemoryUsage, Value: 1}})
	c.Clear()
	require.Equal(t, 0, c.Len())
	require.Empty(t, c.Snapshot())
}
