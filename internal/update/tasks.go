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

package update

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Handle runs every task in order, stopping at the first error (spec
// §4.11 step 4: "run each action's tasks sequentially, failing the whole
// update on the first task error").
func (a UpdateAction) Handle() error {
	for _, task := range a.Tasks {
		switch task.Action {
		case TaskActionMove:
			if err := runMove(task.Src, task.Dest); err != nil {
				return err
			}
		case TaskActionUpdateJson:
			if err := runUpdateJSON(task.File, task.Field, task.Value); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %q", ErrInvalidTaskAction, task.Action)
		}
	}
	return nil
}

// runMove relocates src to dest, grounded on
// original_source/.../tasks/move_resource.rs's rename-based move.
func runMove(src, dest string) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("update: move source %q: %w", src, err)
	}
	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("update: move %q to %q: %w", src, dest, err)
	}
	return nil
}

// runUpdateJSON rewrites one dotted-path field of a JSON file in place,
// grounded on original_source/.../tasks/update_json.rs's run(). Array
// elements are not addressable (the original's explicit limitation);
// every path segment but the last must resolve to an existing JSON
// object.
func runUpdateJSON(file, field, value string) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("update: read json file %q: %w", file, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("update: parse json file %q: %w", file, err)
	}

	parts := strings.Split(field, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidFieldPath, field)
		}
		current = next
	}
	current[parts[len(parts)-1]] = value

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("update: encode json file %q: %w", file, err)
	}
	if err := os.WriteFile(file, out, 0o644); err != nil {
		return fmt.Errorf("update: write json file %q: %w", file, err)
	}
	return nil
}
