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

// nodex-ctl is the supervisor (controller) process: it launches and
// tracks the agent binary via internal/supervisor's RuntimeManager, and
// drives staged updates through internal/update.Execute. Grounded on
// original_source/controller/src/main.rs's controller entrypoint and
// cmd/sage-did/main.go's cobra root-command layout.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nodecross/nodex/internal/config"
	"github.com/nodecross/nodex/internal/keyring"
	"github.com/nodecross/nodex/internal/logger"
	"github.com/nodecross/nodex/internal/sidetree"
	"github.com/nodecross/nodex/internal/supervisor"
	"github.com/nodecross/nodex/internal/update"
	"github.com/nodecross/nodex/pkg/version"
)

var (
	flagConfigPath  string
	flagNetworkPath string
	flagUdsPath     string
	flagRuntimePath string
	flagExecPath    string
	flagTmpPath     string
)

var rootCmd = &cobra.Command{
	Use:   "nodex-ctl",
	Short: "nodex supervisor control",
}

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "launch the agent and track it in the runtime-info file",
	RunE:  runLaunch,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "report whether the agent is running",
	RunE:  runStatus,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "apply staged update bundles from the tmp directory",
	RunE:  runUpdate,
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "mark the runtime state Rollback without running an update",
	RunE:  runRollback,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "create a keyring and submit its Sidetree create operation, once",
	RunE:  runInit,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "/etc/nodex/config.json", "path to config.json")
	rootCmd.PersistentFlags().StringVar(&flagNetworkPath, "network-config", "/etc/nodex/network.json", "path to network.json")
	rootCmd.PersistentFlags().StringVar(&flagUdsPath, "uds", "/run/nodex/nodex.sock", "agent's internal API unix domain socket path")
	rootCmd.PersistentFlags().StringVar(&flagRuntimePath, "runtime-info", "/run/nodex/runtime_info.json", "path to the runtime-info file")
	rootCmd.PersistentFlags().StringVar(&flagExecPath, "agent-path", "/usr/local/bin/nodex-agent", "path to the nodex-agent binary")
	updateCmd.Flags().StringVar(&flagTmpPath, "tmp", "/var/lib/nodex/tmp", "staging directory holding bundles/*.yml")
	rootCmd.AddCommand(launchCmd, statusCmd, updateCmd, rollbackCmd, initCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRuntimeManager() (*supervisor.RuntimeManager, error) {
	storage := supervisor.NewFileStorage(flagRuntimePath, flagExecPath)
	return supervisor.NewRuntimeManagerForController(storage, supervisor.OSProcessManager{}, flagUdsPath, flagExecPath)
}

func runLaunch(cmd *cobra.Command, args []string) error {
	log := logger.GetDefaultLogger()
	rtm, err := newRuntimeManager()
	if err != nil {
		return fmt.Errorf("nodex-ctl: runtime manager: %w", err)
	}
	running, err := rtm.IsAgentRunning()
	if err != nil {
		return fmt.Errorf("nodex-ctl: check agent: %w", err)
	}
	info, err := rtm.LaunchAgent(cmd.Context(), !running, config.SocketActivated())
	if err != nil {
		log.Error("launch agent failed", logger.Error(err))
		return fmt.Errorf("nodex-ctl: launch agent: %w", err)
	}
	log.Info("launched agent", logger.Int("pid", info.ProcessID), logger.String("version", info.Version))
	fmt.Printf("launched agent pid=%d version=%s\n", info.ProcessID, info.Version)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	rtm, err := newRuntimeManager()
	if err != nil {
		return fmt.Errorf("nodex-ctl: runtime manager: %w", err)
	}
	running, err := rtm.IsAgentRunning()
	if err != nil {
		return fmt.Errorf("nodex-ctl: check agent: %w", err)
	}
	if running {
		fmt.Println("agent: running")
	} else {
		fmt.Println("agent: not running")
	}
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	log := logger.GetDefaultLogger()
	rtm, err := newRuntimeManager()
	if err != nil {
		return fmt.Errorf("nodex-ctl: runtime manager: %w", err)
	}
	resourceManager := update.FileResourceManager{TmpPath: flagTmpPath}
	log.Info("starting update", logger.String("tmp", flagTmpPath), logger.String("current_version", version.Version))
	if err := update.Execute(cmd.Context(), version.Version, resourceManager, rtm); err != nil {
		log.Error("update failed", logger.Error(err))
		return err
	}
	log.Info("update completed")
	return nil
}

func runRollback(cmd *cobra.Command, args []string) error {
	log := logger.GetDefaultLogger()
	rtm, err := newRuntimeManager()
	if err != nil {
		return fmt.Errorf("nodex-ctl: runtime manager: %w", err)
	}
	if err := rtm.UpdateState(supervisor.StateRollback); err != nil {
		log.Error("rollback failed", logger.Error(err))
		return fmt.Errorf("nodex-ctl: rollback: %w", err)
	}
	log.Info("runtime state set to Rollback")
	fmt.Println("runtime state set to Rollback")
	return nil
}

// runInit performs the one-time provisioning step: generate the six
// scoped key pairs (spec §4.1) and submit the Sidetree create operation
// built from them (spec §4.2) if a DID endpoint is configured. The
// device's assigned DID itself is carried in config.json (set by the
// enrollment flow that issues network.json's project_did/secret_key),
// not computed here.
func runInit(cmd *cobra.Command, args []string) error {
	log := logger.GetDefaultLogger()
	handle, err := config.Load(flagConfigPath, flagNetworkPath)
	if err != nil {
		return fmt.Errorf("nodex-ctl: load config: %w", err)
	}
	cfg := handle.Snapshot()
	if cfg.IsInitialized {
		fmt.Println("already initialized")
		return nil
	}

	kr, err := keyring.Create()
	if err != nil {
		log.Error("keyring creation failed", logger.Error(err))
		return fmt.Errorf("nodex-ctl: create keyring: %w", err)
	}

	env, err := config.LoadEnv(".env")
	if err != nil {
		return fmt.Errorf("nodex-ctl: load env: %w", err)
	}
	if env.DidHTTPEndpoint != "" {
		if err := submitCreateOperation(cmd.Context(), env.DidHTTPEndpoint, kr); err != nil {
			log.Error("sidetree create operation failed", logger.Error(err))
			return fmt.Errorf("nodex-ctl: submit create operation: %w", err)
		}
	}

	if err := handle.Save(func(c *config.Config) {
		c.KeyPairs = kr.ToStored()
		c.IsInitialized = true
	}); err != nil {
		return fmt.Errorf("nodex-ctl: persist keyring: %w", err)
	}
	log.Info("keyring initialized")
	fmt.Println("initialized")
	return nil
}

func submitCreateOperation(ctx context.Context, endpoint string, kr *keyring.Keyring) error {
	client, err := sidetree.NewClient(endpoint, nil)
	if err != nil {
		return err
	}
	op, err := sidetree.BuildCreateOperation(kr.Sign, kr.Encrypt, kr.Update, kr.Recovery)
	if err != nil {
		return err
	}
	return client.SubmitCreate(ctx, op)
}
