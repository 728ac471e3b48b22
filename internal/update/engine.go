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
	"fmt"
	"os"
	"time"

	"github.com/blang/semver/v4"
	"gopkg.in/yaml.v3"

	"github.com/nodecross/nodex/internal/supervisor"
)

// ResourceManager is the bundle-staging capability the engine runs
// against, grounded on original_source/controller/src/managers/
// resource.rs's ResourceManagerTrait (only the subset this core needs —
// download/backup/rollback are the out-of-scope "resource-backup
// tarball", spec §1).
type ResourceManager interface {
	CollectDownloadedBundles() []string
	Remove() error
}

// ErrRemoveFailed is the idempotent staging-cleanup failure that spec §7
// says must NOT trigger a state transition, mirroring
// ResourceError::RemoveFailed.
var ErrRemoveFailed = errors.New("update: remove staging directory failed")

// RuntimeManager is the process-lifecycle capability the engine drives,
// satisfied by *supervisor.RuntimeManager.
type RuntimeManager interface {
	IsAgentRunning() (bool, error)
	LaunchAgent(ctx context.Context, isFirst, socketActivated bool) (supervisor.ProcessInfo, error)
	KillOtherAgents(targetPID int) error
	UpdateState(state supervisor.State) error
	GetVersion(ctx context.Context) (string, error)
}

const (
	versionPollInterval = 3 * time.Second
	versionPollTimeout  = 180 * time.Second
)

// Execute runs one full update cycle (spec §4.11). currentVersion is the
// running binary's own semver (the Go analogue of CARGO_PKG_VERSION).
func Execute(ctx context.Context, currentVersion string, resourceManager ResourceManager, runtimeManager RuntimeManager) error {
	err := execute(ctx, currentVersion, resourceManager, runtimeManager)
	if err == nil {
		return runtimeManager.UpdateState(supervisor.StateIdle)
	}
	if target, ok := targetState(err); ok {
		if stateErr := runtimeManager.UpdateState(target); stateErr != nil {
			return fmt.Errorf("update: %w (also failed to record state: %v)", err, stateErr)
		}
	}
	return err
}

func execute(ctx context.Context, currentVersion string, resourceManager ResourceManager, runtimeManager RuntimeManager) error {
	current, err := semver.Parse(currentVersion)
	if err != nil {
		return ErrInvalidVersionFormat
	}

	running, err := runtimeManager.IsAgentRunning()
	if err != nil {
		return fmt.Errorf("update: check agent running: %w", err)
	}
	if !running {
		return ErrAgentNotRunning
	}

	bundlePaths := resourceManager.CollectDownloadedBundles()
	actions, err := parseBundles(bundlePaths)
	if err != nil {
		return err
	}
	pending := pendingActions(actions, current)
	for _, action := range pending {
		if err := action.Handle(); err != nil {
			return err
		}
	}

	latest, err := runtimeManager.LaunchAgent(ctx, false, false)
	if err != nil {
		return fmt.Errorf("update: launch new agent: %w", err)
	}
	if err := runtimeManager.KillOtherAgents(latest.ProcessID); err != nil {
		return fmt.Errorf("update: kill previous agents: %w", err)
	}

	if err := monitorAgentVersion(ctx, runtimeManager, current); err != nil {
		return err
	}

	if err := resourceManager.Remove(); err != nil {
		return fmt.Errorf("%w: %v", ErrRemoveFailed, err)
	}
	return nil
}

// targetState maps an execute() error to the recovery state transition
// spec §7 mandates: AgentNotRunning and ErrRemoveFailed leave state
// untouched; every other error rolls back.
func targetState(err error) (supervisor.State, bool) {
	if errors.Is(err, ErrAgentNotRunning) {
		return "", false
	}
	if errors.Is(err, ErrRemoveFailed) {
		return "", false
	}
	return supervisor.StateRollback, true
}

func parseBundles(paths []string) ([]UpdateAction, error) {
	actions := make([]UpdateAction, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("update: read bundle %q: %w", p, err)
		}
		var action UpdateAction
		if err := yaml.Unmarshal(content, &action); err != nil {
			return nil, fmt.Errorf("update: parse bundle %q: %w", p, err)
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// pendingActions keeps only bundles whose target version is strictly
// newer than current (spec §4.11 step 4); unparseable versions are
// silently skipped, matching the original's Version::parse(...).ok().
func pendingActions(actions []UpdateAction, current semver.Version) []UpdateAction {
	var pending []UpdateAction
	for _, a := range actions {
		target, err := semver.Parse(a.Version)
		if err != nil {
			continue
		}
		if target.GT(current) {
			pending = append(pending, a)
		}
	}
	return pending
}

// monitorAgentVersion polls the new agent's reported version every 3s
// for up to 180s, expecting an exact string match (spec §4.11 step 6).
func monitorAgentVersion(ctx context.Context, runtimeManager RuntimeManager, expected semver.Version) error {
	deadline := time.Now().Add(versionPollTimeout)
	ticker := time.NewTicker(versionPollInterval)
	defer ticker.Stop()
	expectedStr := expected.String()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			version, err := runtimeManager.GetVersion(ctx)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrAgentVersionCheckFailed, err)
			}
			if version == expectedStr {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: expected %q was not received within %s", ErrAgentVersionCheckFailed, expectedStr, versionPollTimeout)
}
