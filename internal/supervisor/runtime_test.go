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
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeProcessManager is an in-memory ProcessManager for exercising
// RuntimeManager without real fork/exec (spec scenario S6: supervisor
// handover).
type fakeProcessManager struct {
	mu      sync.Mutex
	nextPID int
	running map[int]bool
	killed  []int
}

func newFakeProcessManager() *fakeProcessManager {
	return &fakeProcessManager{nextPID: 100, running: map[int]bool{}}
}

func (f *fakeProcessManager) IsRunning(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[pid]
}

func (f *fakeProcessManager) SpawnProcess(string, []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPID++
	f.running[f.nextPID] = true
	return f.nextPID, nil
}

func (f *fakeProcessManager) KillProcess(pid int, _ NodexSignal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.running, pid)
	f.killed = append(f.killed, pid)
	return nil
}

func TestRuntimeInfoAddRemoveProcessInfo(t *testing.T) {
	var ri RuntimeInfo
	require.NoError(t, ri.AddProcessInfo(ProcessInfo{ProcessID: 1, FeatType: FeatTypeAgent}))
	require.NoError(t, ri.AddProcessInfo(ProcessInfo{ProcessID: 2, FeatType: FeatTypeController}))
	require.Error(t, ri.RemoveProcessInfo(999))
	require.NoError(t, ri.RemoveProcessInfo(1))
	require.Nil(t, ri.ProcessInfos[1])
	require.NotNil(t, ri.ProcessInfos[0])
	require.Equal(t, 2, ri.ProcessInfos[0].ProcessID)
}

func TestRuntimeInfoAddProcessInfoTableFull(t *testing.T) {
	var ri RuntimeInfo
	for i := 0; i < MaxProcessInfos; i++ {
		require.NoError(t, ri.AddProcessInfo(ProcessInfo{ProcessID: i}))
	}
	require.ErrorIs(t, ri.AddProcessInfo(ProcessInfo{ProcessID: 999}), ErrProcessTableFull)
}

func TestFileStorageApplyWithLockRoundTrip(t *testing.T) {
	dir := t.TempDir()
	storage := NewFileStorage(filepath.Join(dir, "runtime.json"), "/usr/bin/nodex-agent")

	info, err := storage.Read()
	require.NoError(t, err)
	require.Equal(t, StateInit, info.State)

	require.NoError(t, storage.ApplyWithLock(func(ri *RuntimeInfo) error {
		ri.State = StateIdle
		return ri.AddProcessInfo(ProcessInfo{ProcessID: 42, FeatType: FeatTypeAgent})
	}))

	reread, err := storage.Read()
	require.NoError(t, err)
	require.Equal(t, StateIdle, reread.State)
	require.NotNil(t, reread.ProcessInfos[0])
	require.Equal(t, 42, reread.ProcessInfos[0].ProcessID)
}

func TestRuntimeManagerHandoverListenerSendsFd(t *testing.T) {
	dir := t.TempDir()
	udsPath := filepath.Join(dir, "nodex.sock")
	metaPath, err := conventionOfMetaUdsPath(udsPath)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "meta_nodex.sock"), metaPath)

	storage := NewFileStorage(filepath.Join(dir, "runtime.json"), "/usr/bin/nodex-agent")
	pm := newFakeProcessManager()
	rm := &RuntimeManager{selfPID: 1, storage: storage, process: pm, udsPath: udsPath, metaUdsPath: metaPath, execPath: "/usr/bin/nodex-agent"}

	// Pre-create a listener standing in for the socket-activation fd the
	// supervisor hands off (a real systemd fd=3 is not available in a
	// unit test).
	srcLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer srcLn.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	var received net.Listener
	var recvErr error
	go func() {
		defer wg.Done()
		received, recvErr = ReceiveListener(metaPath)
	}()

	// Give ReceiveListener a moment to bind before handoverListener starts
	// polling for the meta UDS file to appear.
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// LaunchAgent's own handover only sends the systemd fd (or nil); to
	// actually exercise SCM_RIGHTS fd transfer, emulate the agent launch
	// path by calling handoverListener directly with a real fd.
	tcpLn := srcLn.(*net.TCPListener)
	f, err := tcpLn.File()
	require.NoError(t, err)
	defer f.Close()
	fdInt := int(f.Fd())

	require.NoError(t, rm.handoverListener(ctx, &fdInt))

	wg.Wait()
	require.NoError(t, recvErr)
	require.NotNil(t, received)
	received.Close()
}

func TestRuntimeManagerKillOtherAgents(t *testing.T) {
	dir := t.TempDir()
	storage := NewFileStorage(filepath.Join(dir, "runtime.json"), "/usr/bin/nodex-agent")
	pm := newFakeProcessManager()
	rm := &RuntimeManager{selfPID: 1, storage: storage, process: pm}

	require.NoError(t, rm.addProcessInfo(ProcessInfo{ProcessID: 10, FeatType: FeatTypeAgent}))
	require.NoError(t, rm.addProcessInfo(ProcessInfo{ProcessID: 11, FeatType: FeatTypeAgent}))
	require.NoError(t, rm.addProcessInfo(ProcessInfo{ProcessID: 12, FeatType: FeatTypeController}))

	require.NoError(t, rm.KillOtherAgents(11))

	info, err := storage.Read()
	require.NoError(t, err)
	var remaining []int
	for _, p := range info.ProcessInfos {
		if p != nil {
			remaining = append(remaining, p.ProcessID)
		}
	}
	require.ElementsMatch(t, []int{11, 12}, remaining)
}

func TestRuntimeManagerCleanupAllResetsState(t *testing.T) {
	dir := t.TempDir()
	storage := NewFileStorage(filepath.Join(dir, "runtime.json"), "/usr/bin/nodex-agent")
	pm := newFakeProcessManager()
	rm := &RuntimeManager{selfPID: 1, storage: storage, process: pm}

	require.NoError(t, rm.addProcessInfo(ProcessInfo{ProcessID: 10, FeatType: FeatTypeAgent}))
	require.NoError(t, rm.UpdateState(StateUpdate))
	require.NoError(t, rm.CleanupAll())

	info, err := storage.Read()
	require.NoError(t, err)
	require.Equal(t, StateInit, info.State)
	for _, p := range info.ProcessInfos {
		require.Nil(t, p)
	}
}
