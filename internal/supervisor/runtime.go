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
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/nodecross/nodex/pkg/version"
)

// pollInterval is the UDS-connect retry backoff (spec §5: "UDS connect
// retry loop with a fixed 5 ms sleep").
const pollInterval = 5 * time.Millisecond

// watchPollInterval bounds the meta-UDS file-watch fallback: no
// notify-style library is wired in this pack (see DESIGN.md), so
// wait-for-creation is a bounded poll loop, matching spec §4.10's
// "file-watch with bounded polling fallback" wording directly.
const watchPollInterval = 10 * time.Millisecond

// RuntimeManager drives the C11 state machine: launching and killing
// agent/controller processes, tracking them in RuntimeInfo, and handing
// the listening socket across agent generations via SCM_RIGHTS. Grounded
// on original_source/controller/src/managers/runtime.rs's
// RuntimeManagerImpl.
type RuntimeManager struct {
	selfPID     int
	storage     RuntimeInfoStorage
	process     ProcessManager
	udsPath     string
	metaUdsPath string
	execPath    string
}

// NewRuntimeManagerForController constructs a RuntimeManager for the
// supervisor (controller) process: it cleans up dead process entries,
// then refuses to start if another live Controller is already tracked
// (spec §7: "unexpected second controller detected").
func NewRuntimeManagerForController(storage RuntimeInfoStorage, process ProcessManager, udsPath, execPath string) (*RuntimeManager, error) {
	metaUdsPath, err := conventionOfMetaUdsPath(udsPath)
	if err != nil {
		return nil, err
	}
	rm := &RuntimeManager{
		selfPID:     os.Getpid(),
		storage:     storage,
		process:     process,
		udsPath:     udsPath,
		metaUdsPath: metaUdsPath,
		execPath:    execPath,
	}
	if err := rm.cleanupDeadProcessInfo(); err != nil {
		return nil, err
	}
	info, err := storage.Read()
	if err != nil {
		return nil, err
	}
	for _, p := range info.ProcessInfos {
		if p != nil && p.FeatType == FeatTypeController && p.ProcessID != rm.selfPID {
			return nil, ErrAlreadyController
		}
	}
	if err := rm.addProcessInfo(ProcessInfo{
		ProcessID:  rm.selfPID,
		ExecutedAt: time.Now().UTC(),
		FeatType:   FeatTypeController,
	}); err != nil {
		return nil, err
	}
	return rm, nil
}

// NewRuntimeManagerForAgent constructs a RuntimeManager for the agent
// process itself, which never touches the meta-UDS handshake it
// receives from the supervisor directly over its own listener setup.
func NewRuntimeManagerForAgent(storage RuntimeInfoStorage, process ProcessManager) *RuntimeManager {
	return &RuntimeManager{selfPID: os.Getpid(), storage: storage, process: process}
}

// conventionOfMetaUdsPath derives "<dir>/meta_<base>" from a primary
// socket path (spec §4.10's meta-UDS naming convention).
func conventionOfMetaUdsPath(udsPath string) (string, error) {
	if udsPath == "" {
		return "", fmt.Errorf("%w: empty uds path", ErrPathConvention)
	}
	dir := filepath.Dir(udsPath)
	base := filepath.Base(udsPath)
	return filepath.Join(dir, "meta_"+base), nil
}

// LaunchAgent spawns the agent binary. On first launch (isFirst) it
// removes stale UDS files, then — once the agent's meta UDS appears —
// connects and hands over the listening socket fd via SCM_RIGHTS,
// inheriting it from the activator (fd 3) under socket activation, or
// else passing nil so the agent binds its own listener (spec §4.10).
func (rm *RuntimeManager) LaunchAgent(ctx context.Context, isFirst bool, socketActivated bool) (ProcessInfo, error) {
	if isFirst {
		removeIfExists(rm.udsPath)
		removeIfExists(rm.metaUdsPath)
	}

	pid, err := rm.process.SpawnProcess(rm.execPath, nil)
	if err != nil {
		return ProcessInfo{}, fmt.Errorf("supervisor: launch agent: %w", err)
	}

	if isFirst {
		var listenerFd *int
		if socketActivated {
			fd := ListenFd
			listenerFd = &fd
		}
		if err := rm.handoverListener(ctx, listenerFd); err != nil {
			return ProcessInfo{}, err
		}
	}

	info := ProcessInfo{ProcessID: pid, ExecutedAt: time.Now().UTC(), Version: rm.currentVersion(), FeatType: FeatTypeAgent}
	if err := rm.addProcessInfo(info); err != nil {
		return ProcessInfo{}, err
	}
	return info, nil
}

// currentVersionFunc is overridable in tests; by default it reports the
// build's version from pkg/version.
var currentVersionFunc = func() string { return version.Version }

func (rm *RuntimeManager) currentVersion() string { return currentVersionFunc() }

// handoverListener waits for the agent's meta UDS to appear, connects,
// and sends the listener fd (or the "no listener" sentinel) over it.
func (rm *RuntimeManager) handoverListener(ctx context.Context, listenerFd *int) error {
	if err := waitUntilFileCreated(ctx, rm.metaUdsPath); err != nil {
		return fmt.Errorf("supervisor: wait for meta uds: %w", err)
	}

	var conn *net.UnixConn
	for {
		c, err := net.Dial("unix", rm.metaUdsPath)
		if err == nil {
			conn = c.(*net.UnixConn)
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	defer conn.Close()

	rawConn, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("supervisor: meta uds raw conn: %w", err)
	}
	var sendErr error
	if err := rawConn.Control(func(fd uintptr) {
		sendErr = sendFd(int(fd), listenerFd)
	}); err != nil {
		return fmt.Errorf("supervisor: meta uds control: %w", err)
	}
	return sendErr
}

// waitUntilFileCreated polls for path's existence, bounded by ctx
// (spec §4.10/§5: "file-watch with bounded polling fallback").
func waitUntilFileCreated(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := os.Stat(path); err == nil {
				return nil
			}
		}
	}
}

func removeIfExists(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
}

// IsAgentRunning reports whether any tracked process is an Agent (spec
// §4.11 step 2).
func (rm *RuntimeManager) IsAgentRunning() (bool, error) {
	info, err := rm.storage.Read()
	if err != nil {
		return false, err
	}
	for _, p := range info.ProcessInfos {
		if p != nil && p.FeatType == FeatTypeAgent {
			return true, nil
		}
	}
	return false, nil
}

// GetExecPath returns the agent binary path recorded in RuntimeInfo.
func (rm *RuntimeManager) GetExecPath() (string, error) {
	info, err := rm.storage.Read()
	if err != nil {
		return "", err
	}
	return info.ExecPath, nil
}

// KillProcess sends the process-type-appropriate signal (SIGUSR1 for a
// graceful Agent handover, terminate for a Controller) and removes its
// RuntimeInfo entry (spec §4.10).
func (rm *RuntimeManager) KillProcess(info ProcessInfo) error {
	signal := SignalTerminate
	if info.FeatType == FeatTypeAgent {
		signal = SignalSendFd
	}
	if err := rm.process.KillProcess(info.ProcessID, signal); err != nil {
		return err
	}
	return rm.removeProcessInfo(info.ProcessID)
}

// KillOtherAgents kills every tracked Agent other than targetPID (spec
// §4.10), used by the update engine after launching the new generation.
func (rm *RuntimeManager) KillOtherAgents(targetPID int) error {
	info, err := rm.storage.Read()
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range info.ProcessInfos {
		if p == nil || p.FeatType != FeatTypeAgent || p.ProcessID == targetPID {
			continue
		}
		if err := rm.KillProcess(*p); err != nil {
			errs = append(errs, err)
		}
	}
	return joinKillErrors(errs)
}

// UpdateState writes state to RuntimeInfo under exclusive lock (spec
// §4.10: "Transitions are authoritative writes to the runtime-info file
// under exclusive lock").
func (rm *RuntimeManager) UpdateState(state State) error {
	return rm.storage.ApplyWithLock(func(info *RuntimeInfo) error {
		info.State = state
		return nil
	})
}

// CleanupAll kills every tracked process, removes both UDS files, and
// resets state to Init (spec §4.10).
func (rm *RuntimeManager) CleanupAll() error {
	removeIfExists(rm.udsPath)
	removeIfExists(rm.metaUdsPath)
	return rm.storage.ApplyWithLock(func(info *RuntimeInfo) error {
		var errs []error
		for i, p := range info.ProcessInfos {
			if p == nil {
				continue
			}
			if err := rm.process.KillProcess(p.ProcessID, SignalTerminate); err != nil {
				errs = append(errs, err)
			}
			info.ProcessInfos[i] = nil
		}
		info.State = StateInit
		return joinKillErrors(errs)
	})
}

// Cleanup removes just this process's own RuntimeInfo entry, used by a
// Controller on graceful shutdown.
func (rm *RuntimeManager) Cleanup() error {
	return rm.removeProcessInfo(rm.selfPID)
}

func (rm *RuntimeManager) addProcessInfo(info ProcessInfo) error {
	return rm.storage.ApplyWithLock(func(ri *RuntimeInfo) error {
		return ri.AddProcessInfo(info)
	})
}

func (rm *RuntimeManager) removeProcessInfo(processID int) error {
	return rm.storage.ApplyWithLock(func(ri *RuntimeInfo) error {
		return ri.RemoveProcessInfo(processID)
	})
}

func (rm *RuntimeManager) cleanupDeadProcessInfo() error {
	return rm.storage.ApplyWithLock(func(ri *RuntimeInfo) error {
		for i, p := range ri.ProcessInfos {
			if p != nil && !rm.process.IsRunning(p.ProcessID) {
				ri.ProcessInfos[i] = nil
			}
		}
		return nil
	})
}

func joinKillErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	combined := errs[0]
	for _, e := range errs[1:] {
		combined = fmt.Errorf("%w; %v", combined, e)
	}
	return fmt.Errorf("supervisor: kill failures: %w", combined)
}
