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

package supervisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// RuntimeInfoStorage persists RuntimeInfo, serializing concurrent
// mutation through ApplyWithLock (spec §4.10: "Transitions are
// authoritative writes to the runtime-info file under exclusive lock").
type RuntimeInfoStorage interface {
	Read() (RuntimeInfo, error)
	ApplyWithLock(operation func(*RuntimeInfo) error) error
}

// FileStorage is the JSON-file-backed RuntimeInfoStorage, grounded on
// the original's FileHandler (JSON read/write) paired with an
// OS-exclusive file lock. gofrs/flock provides the lock rather than a
// hand-rolled flock(2) wrapper.
type FileStorage struct {
	path     string
	lockPath string
	execPath string
}

// NewFileStorage opens path as the runtime-info JSON file, using a
// sidecar path+".lock" for the exclusive lock so locking never depends
// on the data file already existing.
func NewFileStorage(path, execPath string) *FileStorage {
	return &FileStorage{path: path, lockPath: path + ".lock", execPath: execPath}
}

func (s *FileStorage) Read() (RuntimeInfo, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return RuntimeInfo{State: StateInit, ExecPath: s.execPath}, nil
	}
	if err != nil {
		return RuntimeInfo{}, fmt.Errorf("supervisor: read runtime info: %w", err)
	}
	var info RuntimeInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return RuntimeInfo{}, fmt.Errorf("supervisor: decode runtime info: %w", err)
	}
	return info, nil
}

func (s *FileStorage) ApplyWithLock(operation func(*RuntimeInfo) error) error {
	lock := flock.New(s.lockPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileLock, err)
	}
	defer lock.Unlock()

	info, err := s.Read()
	if err != nil {
		return err
	}
	opErr := operation(&info)

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("supervisor: encode runtime info: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("supervisor: write runtime info: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("supervisor: replace runtime info: %w", err)
	}
	return opErr
}
