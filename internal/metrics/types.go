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

// Package metrics implements the device telemetry pipeline (C10): a
// collector task that samples OS metrics into a bounded in-memory cache,
// and a sender task that drains the cache and posts it to the studio as
// one or more CBOR/COSE envelopes, greedy-packed to a body-size budget.
// Grounded on original_source/agent/src/usecase/metric_usecase.rs's
// collect_task/send_task pair (Metric/MetricType/MetricsWithTimestamp),
// generalized to the bounded-deque and greedy-packing semantics spec
// §4.9 and scenario S5 require.
package metrics

import (
	"errors"
	"time"
)

// MetricType names a single sampled quantity, mirroring the original's
// MetricType enum.
type MetricType string

const (
	MetricTypeCPUUsage    MetricType = "cpu_usage"
	MetricTypeMemoryUsage MetricType = "memory_usage"
)

// Metric is one OS-watcher sample.
type Metric struct {
	Type  MetricType `json:"metric_type" cbor:"metric_type"`
	Value float64    `json:"value" cbor:"value"`
}

// TimestampedMetric is the cache's unit of storage: a single metric
// timestamped at the moment it was pushed (spec §4.9: "each timestamped
// at push time"), matching the original's push(now(), vec![metric])
// per-sample granularity.
type TimestampedMetric struct {
	Timestamp time.Time `json:"timestamp" cbor:"timestamp"`
	Metric    Metric    `json:"metric" cbor:"metric"`
}

var (
	// ErrItemTooLarge is returned by a send cycle when a single cached
	// item's envelope payload already exceeds MaxEnvelopePayloadBytes:
	// the whole batch fails, not just that item (spec §4.9).
	ErrItemTooLarge = errors.New("metrics: item exceeds envelope payload budget")
	// ErrPostFailed wraps a poster's non-2xx or transport failure.
	ErrPostFailed = errors.New("metrics: post failed")
)

// MaxEnvelopePayloadBytes is the per-envelope CBOR payload budget a send
// cycle packs batches against (spec §4.9, §4.10).
const MaxEnvelopePayloadBytes = 900_000
