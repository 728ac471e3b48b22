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

// Package config owns the on-disk config file and network config file
// (spec §6), replacing the teacher's lazily-initialized global
// (config/config.go's package-level singleton) with an explicit Handle
// constructed once at startup and threaded through the call graph (spec
// §9's "re-express as an explicit configuration handle" design note).
// All writes serialize through the Handle's mutex; readers snapshot the
// in-memory mirror under the same lock (spec §5).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/nodecross/nodex/internal/keyring"
)

var (
	ErrFileUnreadable     = errors.New("config: file unreadable")
	ErrIntervalOutOfRange = errors.New("config: interval out of range")
	ErrMissingProjectDid  = errors.New("config: missing project_did")
	ErrMissingSecretKey   = errors.New("config: missing secret_key")
)

// SchemaVersion is bumped whenever the on-disk shape changes incompatibly.
const SchemaVersion = 1

// MetricsConfig bounds the collector/sender intervals and cache capacity
// (spec §4.9).
type MetricsConfig struct {
	CollectInterval int `json:"collect_interval"`
	SendInterval    int `json:"send_interval"`
	CacheCapacity   int `json:"cache_capacity"`
}

// Validate enforces spec §4.9's documented ranges.
func (m MetricsConfig) Validate() error {
	if m.CollectInterval < 5 || m.CollectInterval > 300 {
		return fmt.Errorf("%w: collect_interval=%d (want 5..300)", ErrIntervalOutOfRange, m.CollectInterval)
	}
	if m.SendInterval < 60 || m.SendInterval > 3600 {
		return fmt.Errorf("%w: send_interval=%d (want 60..3600)", ErrIntervalOutOfRange, m.SendInterval)
	}
	if m.CacheCapacity < 10_000 || m.CacheCapacity > 1_000_000 {
		return fmt.Errorf("%w: cache_capacity=%d (want 10000..1000000)", ErrIntervalOutOfRange, m.CacheCapacity)
	}
	return nil
}

// DidCommConfig carries the HTTP body size limit enforced on DIDComm
// attachment bodies.
type DidCommConfig struct {
	HTTPBodySizeLimit int `json:"http_body_size_limit"`
}

// Config is the full on-disk config file shape (spec §6).
type Config struct {
	DID           string                   `json:"did,omitempty"`
	KeyPairs      keyring.StoredKeyPairs   `json:"key_pairs"`
	Extensions    map[string]any           `json:"extensions,omitempty"`
	Metrics       MetricsConfig            `json:"metrics"`
	DidComm       DidCommConfig            `json:"didcomm"`
	IsInitialized bool                     `json:"is_initialized"`
	SchemaVersion int                      `json:"schema_version"`
}

// NetworkConfig is the separate network config file shape (spec §6). The
// `studio_endpoint` field is persisted but never read to reconfigure the
// HTTP client, and `recipient_dids`/`heartbeat` are inert — per spec §9's
// open-question resolution, the schema is preserved without behavioral
// wiring until intent is clarified.
type NetworkConfig struct {
	SecretKey       string   `json:"secret_key,omitempty"`
	ProjectDid      string   `json:"project_did,omitempty"`
	RecipientDids   []string `json:"recipient_dids,omitempty"`
	StudioEndpoint  string   `json:"studio_endpoint,omitempty"`
	Heartbeat       *int     `json:"heartbeat,omitempty"`
}

// Validate enforces the exit-code-triggering checks of spec §6: a
// missing project_did or secret_key is a fatal init failure.
func (n NetworkConfig) Validate() error {
	if n.ProjectDid == "" {
		return ErrMissingProjectDid
	}
	if n.SecretKey == "" {
		return ErrMissingSecretKey
	}
	return nil
}

// Handle is the single owning mutex-guarded mirror of both config files,
// replacing the teacher's `once.Do`-initialized package-level instance.
// Every write goes through Handle.Save; readers call Handle.Snapshot.
type Handle struct {
	mu          sync.Mutex
	path        string
	networkPath string
	cfg         Config
	network     NetworkConfig
}

// Load reads path and networkPath, constructing a Handle with both
// mirrors populated. A missing config file is ErrFileUnreadable (a
// fatal init failure per spec §6's exit-code table); a missing network
// file is tolerated (the agent may not yet be provisioned) but its
// Validate() will fail downstream.
func Load(path, networkPath string) (*Handle, error) {
	cfg, err := readJSON[Config](path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileUnreadable, err)
	}
	if cfg.SchemaVersion == 0 {
		cfg.SchemaVersion = SchemaVersion
	}
	var network NetworkConfig
	if data, rerr := os.ReadFile(networkPath); rerr == nil {
		if jerr := json.Unmarshal(data, &network); jerr != nil {
			return nil, fmt.Errorf("config: decode network config: %w", jerr)
		}
	} else if !os.IsNotExist(rerr) {
		return nil, fmt.Errorf("config: read network config: %w", rerr)
	}
	return &Handle{path: path, networkPath: networkPath, cfg: cfg, network: network}, nil
}

func readJSON[T any](path string) (T, error) {
	var out T
	data, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Snapshot returns a copy of the in-memory config mirror (spec §5: "readers
// may snapshot the mirror under the same mutex").
func (h *Handle) Snapshot() Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg
}

// NetworkSnapshot returns a copy of the in-memory network config mirror.
func (h *Handle) NetworkSnapshot() NetworkConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.network
}

// Save atomically replaces the config file's contents, serialized through
// the Handle's mutex (spec §4.1's "atomic replacement of all stored key
// pairs within a single write", generalized to the whole config struct).
func (h *Handle) Save(mutate func(*Config)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	next := h.cfg
	mutate(&next)
	if err := next.Metrics.Validate(); err != nil {
		return err
	}
	if err := writeJSONAtomic(h.path, next); err != nil {
		return err
	}
	h.cfg = next
	return nil
}

// SaveNetwork atomically replaces the network config file's contents.
func (h *Handle) SaveNetwork(mutate func(*NetworkConfig)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	next := h.network
	mutate(&next)
	if err := writeJSONAtomic(h.networkPath, next); err != nil {
		return err
	}
	h.network = next
	return nil
}

// writeJSONAtomic writes via a temp file + rename so readers never
// observe a partially-written config file (same discipline as
// internal/supervisor's runtime-info write, spec §5/§7).
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("config: rename temp file: %w", err)
	}
	return nil
}
