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
	"fmt"
	"os"
	"path/filepath"
)

// FileResourceManager is the minimal ResourceManager this core needs:
// finding staged bundle files and clearing the staging directory once an
// update completes. Grounded on
// original_source/controller/src/managers/resource.rs's
// collect_downloaded_bundles/remove; the download/backup/rollback-tarball
// surface of that file is the "resource-backup tarball" spec §1
// explicitly places out of scope.
type FileResourceManager struct {
	TmpPath string
}

// CollectDownloadedBundles globs TmpPath/bundles/*.yml (spec §4.11 step
// 3).
func (f FileResourceManager) CollectDownloadedBundles() []string {
	matches, err := filepath.Glob(filepath.Join(f.TmpPath, "bundles", "*.yml"))
	if err != nil {
		return nil
	}
	return matches
}

// Remove deletes every entry under TmpPath after a successful update
// (spec §4.11 step 7).
func (f FileResourceManager) Remove() error {
	entries, err := os.ReadDir(f.TmpPath)
	if err != nil {
		return fmt.Errorf("update: read tmp dir: %w", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(f.TmpPath, entry.Name())); err != nil {
			return fmt.Errorf("update: remove %q: %w", entry.Name(), err)
		}
	}
	return nil
}
