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
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodecross/nodex/internal/supervisor"
)

type fakeResourceManager struct {
	bundles     []string
	removeErr   error
	removeCalls int
}

func (f *fakeResourceManager) CollectDownloadedBundles() []string { return f.bundles }
func (f *fakeResourceManager) Remove() error {
	f.removeCalls++
	return f.removeErr
}

type fakeRuntimeManager struct {
	agentRunning    bool
	launchErr       error
	killErr         error
	versions        []string
	versionIdx      int
	statesRecorded  []supervisor.State
	launchedPID     int
}

func (f *fakeRuntimeManager) IsAgentRunning() (bool, error) { return f.agentRunning, nil }
func (f *fakeRuntimeManager) LaunchAgent(context.Context, bool, bool) (supervisor.ProcessInfo, error) {
	if f.launchErr != nil {
		return supervisor.ProcessInfo{}, f.launchErr
	}
	f.launchedPID = 999
	return supervisor.ProcessInfo{ProcessID: 999, FeatType: supervisor.FeatTypeAgent}, nil
}
func (f *fakeRuntimeManager) KillOtherAgents(int) error { return f.killErr }
func (f *fakeRuntimeManager) UpdateState(state supervisor.State) error {
	f.statesRecorded = append(f.statesRecorded, state)
	return nil
}
func (f *fakeRuntimeManager) GetVersion(context.Context) (string, error) {
	if f.versionIdx >= len(f.versions) {
		return f.versions[len(f.versions)-1], nil
	}
	v := f.versions[f.versionIdx]
	f.versionIdx++
	return v, nil
}

func writeBundle(t *testing.T, dir, name, version string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := "version: \"" + version + "\"\ndescription: test\ntasks: []\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExecuteAgentNotRunningLeavesStateUntouched(t *testing.T) {
	rtm := &fakeRuntimeManager{agentRunning: false}
	rm := &fakeResourceManager{}
	err := Execute(context.Background(), "1.0.0", rm, rtm)
	require.ErrorIs(t, err, ErrAgentNotRunning)
	require.Empty(t, rtm.statesRecorded)
}

func TestExecuteInvalidCurrentVersion(t *testing.T) {
	rtm := &fakeRuntimeManager{agentRunning: true}
	rm := &fakeResourceManager{}
	err := Execute(context.Background(), "not-a-version", rm, rtm)
	require.ErrorIs(t, err, ErrInvalidVersionFormat)
}

func TestExecuteFullSuccess(t *testing.T) {
	dir := t.TempDir()
	writeBundle(t, dir, "bundle.yml", "2.0.0")

	rtm := &fakeRuntimeManager{agentRunning: true, versions: []string{"2.0.0"}}
	rm := &fakeResourceManager{bundles: []string{filepath.Join(dir, "bundle.yml")}}

	err := Execute(context.Background(), "1.0.0", rm, rtm)
	require.NoError(t, err)
	require.Equal(t, 1, rm.removeCalls)
	require.Equal(t, []supervisor.State{supervisor.StateIdle}, rtm.statesRecorded)
}

func TestExecuteSkipsBundlesNotNewerThanCurrent(t *testing.T) {
	dir := t.TempDir()
	writeBundle(t, dir, "old.yml", "0.5.0")

	rtm := &fakeRuntimeManager{agentRunning: true, versions: []string{"1.0.0"}}
	rm := &fakeResourceManager{bundles: []string{filepath.Join(dir, "old.yml")}}

	err := Execute(context.Background(), "1.0.0", rm, rtm)
	require.NoError(t, err)
}

func TestExecuteRemoveFailedLeavesStateUntouched(t *testing.T) {
	dir := t.TempDir()
	writeBundle(t, dir, "bundle.yml", "2.0.0")

	rtm := &fakeRuntimeManager{agentRunning: true, versions: []string{"1.0.0"}}
	rm := &fakeResourceManager{bundles: []string{filepath.Join(dir, "bundle.yml")}, removeErr: errors.New("boom")}

	err := Execute(context.Background(), "1.0.0", rm, rtm)
	require.ErrorIs(t, err, ErrRemoveFailed)
	require.Empty(t, rtm.statesRecorded)
}

func TestExecuteLaunchFailureRollsBack(t *testing.T) {
	rtm := &fakeRuntimeManager{agentRunning: true, launchErr: context.DeadlineExceeded}
	rm := &fakeResourceManager{}

	err := Execute(context.Background(), "1.0.0", rm, rtm)
	require.Error(t, err)
	require.Equal(t, []supervisor.State{supervisor.StateRollback}, rtm.statesRecorded)
}

func TestExecuteVersionCheckCancelledRollsBack(t *testing.T) {
	// the version check ends on ctx cancellation before its first poll; that error also rolls back
	rtm := &fakeRuntimeManager{agentRunning: true, versions: []string{"9.9.9"}}
	rm := &fakeResourceManager{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already cancelled: ctx.Done() fires immediately inside monitorAgentVersion's select
	err := Execute(ctx, "1.0.0", rm, rtm)
	require.Error(t, err)
	require.Equal(t, []supervisor.State{supervisor.StateRollback}, rtm.statesRecorded)
}
