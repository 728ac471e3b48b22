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

// nodex-agent is the device-side process: it serves the internal
// version endpoint the controller polls during an update
// (internal/update's monitorAgentVersion), and runs the metrics
// collector/sender pair against the studio (internal/metrics,
// internal/studioclient). Its listener is either inherited over the
// meta UDS from nodex-ctl (internal/supervisor.ReceiveListener) or, on
// ErrNoListenerHandedOver, bound fresh -- the same choice
// original_source/controller/src/unix_utils.rs's agent half makes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/nodecross/nodex/internal/config"
	"github.com/nodecross/nodex/internal/keyring"
	"github.com/nodecross/nodex/internal/logger"
	"github.com/nodecross/nodex/internal/metrics"
	"github.com/nodecross/nodex/internal/studioclient"
	"github.com/nodecross/nodex/internal/supervisor"
	"github.com/nodecross/nodex/pkg/version"
)

var (
	flagConfigPath  string
	flagNetworkPath string
	flagUdsPath     string
	flagEnvPath     string
)

var rootCmd = &cobra.Command{
	Use:   "nodex-agent",
	Short: "nodex edge identity agent",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the agent: internal version endpoint plus the metrics pipeline",
	RunE:  runServe,
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
	serveCmd.Flags().StringVar(&flagConfigPath, "config", "/etc/nodex/config.json", "path to config.json")
	serveCmd.Flags().StringVar(&flagNetworkPath, "network-config", "/etc/nodex/network.json", "path to network.json")
	serveCmd.Flags().StringVar(&flagUdsPath, "uds", "/run/nodex/nodex.sock", "internal API unix domain socket path")
	serveCmd.Flags().StringVar(&flagEnvPath, "env", ".env", "optional .env file")
	rootCmd.AddCommand(serveCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.GetDefaultLogger()

	env, err := config.LoadEnv(flagEnvPath)
	if err != nil {
		return fmt.Errorf("nodex-agent: load env: %w", err)
	}

	cfgHandle, err := config.Load(flagConfigPath, flagNetworkPath)
	if err != nil {
		return fmt.Errorf("nodex-agent: load config: %w", err)
	}
	cfg := cfgHandle.Snapshot()
	network := cfgHandle.NetworkSnapshot()

	kr, err := loadOrCreateKeyring(cfgHandle, cfg)
	if err != nil {
		return fmt.Errorf("nodex-agent: keyring: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener, err := acquireListener(ctx, flagUdsPath)
	if err != nil {
		return fmt.Errorf("nodex-agent: acquire listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/internal/version/get", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"version": version.Version})
	})
	server := &http.Server{Handler: mux}

	client := studioclient.NewClient(env.StudioHTTPEndpoint, network.SecretKey, nil)

	watcher, err := metrics.NewProcfsWatcher()
	if err != nil {
		return fmt.Errorf("nodex-agent: metrics watcher: %w", err)
	}
	pipeline := &metrics.Pipeline{
		Cache:           metrics.NewCache(cfg.Metrics.CacheCapacity),
		Watcher:         watcher,
		Poster:          client,
		SigningKey:      kr.Sign,
		DID:             cfg.DID,
		CollectInterval: time.Duration(cfg.Metrics.CollectInterval) * time.Second,
		SendInterval:    time.Duration(cfg.Metrics.SendInterval) * time.Second,
		OnError: func(err error) {
			log.Error("metrics pipeline error", logger.Error(err))
		},
	}
	go pipeline.CollectTask(ctx)
	go pipeline.SendTask(ctx)

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(listener) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGTERM, unix.SIGUSR1, unix.SIGINT)

	log.Info("nodex-agent serving", logger.String("uds", flagUdsPath), logger.String("version", version.Version))

	select {
	case sig := <-sigCh:
		switch sig {
		case unix.SIGUSR1:
			log.Info("received SIGUSR1, handing over gracefully")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			_ = server.Shutdown(shutdownCtx)
		default:
			log.Info("received termination signal, stopping")
			_ = listener.Close()
		}
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("nodex-agent: serve: %w", err)
		}
	}
	cancel()
	return nil
}

// acquireListener mirrors the agent half of spec §4.10's handover
// choreography: receive the controller-handed-over listener over the
// meta UDS, or bind a fresh one when the controller sent the
// "no listener" sentinel (first launch with no socket activation).
func acquireListener(ctx context.Context, udsPath string) (net.Listener, error) {
	metaPath, err := metaUdsPath(udsPath)
	if err != nil {
		return nil, err
	}
	listener, err := supervisor.ReceiveListener(metaPath)
	if err == nil {
		return listener, nil
	}
	if !errors.Is(err, supervisor.ErrNoListenerHandedOver) {
		return nil, err
	}
	_ = os.Remove(udsPath)
	return net.Listen("unix", udsPath)
}

func metaUdsPath(udsPath string) (string, error) {
	if udsPath == "" {
		return "", fmt.Errorf("nodex-agent: empty uds path")
	}
	dir := filepath.Dir(udsPath)
	base := filepath.Base(udsPath)
	return filepath.Join(dir, "meta_"+base), nil
}

// loadOrCreateKeyring loads the keyring from config, or -- on first run
// -- generates and persists a fresh one (spec §4.1's Create, written
// back through the config Handle's atomic Save).
func loadOrCreateKeyring(handle *config.Handle, cfg config.Config) (*keyring.Keyring, error) {
	if cfg.IsInitialized {
		return keyring.Load(cfg.KeyPairs)
	}
	kr, err := keyring.Create()
	if err != nil {
		return nil, err
	}
	if err := handle.Save(func(c *config.Config) {
		c.KeyPairs = kr.ToStored()
		c.IsInitialized = true
	}); err != nil {
		return nil, err
	}
	return kr, nil
}
