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
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// NodexSignal distinguishes the two kill semantics spec §4.10 names:
// SIGUSR1 ("graceful handover") for an Agent, SIGTERM for a Controller.
// Grounded on original_source/controller/src/managers/runtime.rs's
// NodexSignal enum.
type NodexSignal int

const (
	SignalSendFd NodexSignal = iota
	SignalTerminate
)

// ProcessManager is the OS process-lifecycle capability runtime.go is
// built against, grounded on the original's ProcessManager trait
// (is_running/spawn_process/kill_process).
type ProcessManager interface {
	IsRunning(processID int) bool
	SpawnProcess(path string, args []string) (int, error)
	KillProcess(processID int, signal NodexSignal) error
}

// OSProcessManager is the real ProcessManager, built directly on
// os/exec and golang.org/x/sys/unix (no process-management library
// appears anywhere in the pack; see DESIGN.md).
type OSProcessManager struct{}

func (OSProcessManager) IsRunning(processID int) bool {
	proc, err := os.FindProcess(processID)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds; signal 0 probes liveness
	// without actually sending a signal.
	return proc.Signal(unix.Signal(0)) == nil
}

func (OSProcessManager) SpawnProcess(path string, args []string) (int, error) {
	cmd := exec.Command(path, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = daemonSysProcAttr()
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("supervisor: spawn process: %w", err)
	}
	// Release so the child isn't reaped as a direct Cmd zombie; the
	// supervisor tracks it by pid in RuntimeInfo instead.
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return 0, fmt.Errorf("supervisor: release process handle: %w", err)
	}
	return pid, nil
}

func (OSProcessManager) KillProcess(processID int, signal NodexSignal) error {
	proc, err := os.FindProcess(processID)
	if err != nil {
		return fmt.Errorf("supervisor: find process %d: %w", processID, err)
	}
	sig := unix.SIGTERM
	if signal == SignalSendFd {
		sig = unix.SIGUSR1
	}
	if err := proc.Signal(sig); err != nil {
		return fmt.Errorf("supervisor: signal process %d: %w", processID, err)
	}
	return nil
}
