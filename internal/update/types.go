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

// Package update implements the update engine (C12): parses downloaded
// update bundles, runs their ordered tasks, launches the new agent
// generation, verifies its reported version, then cleans up or rolls
// back. Grounded on
// original_source/controller/src/state/update/mod.rs and
// tasks/{mod,update_json}.rs.
package update

import "errors"

// Task is the closed sum type of bundle operations (spec §4.11 step 3).
// "field" is a dotted path; array elements are not supported, matching
// the original's explicit comment on this limitation.
type Task struct {
	Action      string `yaml:"action"`
	Description string `yaml:"description"`
	Src         string `yaml:"src,omitempty"`
	Dest        string `yaml:"dest,omitempty"`
	File        string `yaml:"file,omitempty"`
	Field       string `yaml:"field,omitempty"`
	Value       string `yaml:"value,omitempty"`
}

const (
	TaskActionMove       = "Move"
	TaskActionUpdateJson = "UpdateJson"
)

// UpdateAction is one parsed bundle: a target version, a human
// description, and its ordered task list.
type UpdateAction struct {
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
	Tasks       []Task `yaml:"tasks"`
}

var (
	ErrBundleNotFound         = errors.New("update: bundle not found")
	ErrInvalidVersionFormat   = errors.New("update: invalid version format")
	ErrInvalidTaskAction      = errors.New("update: unrecognized task action")
	ErrInvalidFieldPath       = errors.New("update: invalid field path")
	ErrAgentNotRunning        = errors.New("update: agent not running")
	ErrAgentVersionCheckFailed = errors.New("update: agent version check failed")
)
