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

import "sync"

// Cache is a capacity-bounded in-memory deque of TimestampedMetric,
// dropping the oldest entry on overflow (spec §4.9's cache_capacity,
// 10_000 <= v <= 1_000_000). Snapshot is non-destructive; Clear is a
// separate explicit step so the sender only commits a drain after every
// envelope built from it has posted successfully.
type Cache struct {
	mu       sync.Mutex
	capacity int
	items    []TimestampedMetric
}

// NewCache builds a Cache bounded to capacity items.
func NewCache(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{capacity: capacity}
}

// Push appends item to the back, dropping the oldest entry if the cache
// is already at capacity.
func (c *Cache) Push(item TimestampedMetric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) >= c.capacity {
		c.items = c.items[1:]
	}
	c.items = append(c.items, item)
}

// Snapshot returns a copy of the cache's current contents in order,
// without removing them.
func (c *Cache) Snapshot() []TimestampedMetric {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TimestampedMetric, len(c.items))
	copy(out, c.items)
	return out
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Len reports the number of cached items.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
