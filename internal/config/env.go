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

package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variable names from spec §6.
const (
	EnvDidHTTPEndpoint     = "NODEX_DID_HTTP_ENDPOINT"
	EnvDidAttachmentLink   = "NODEX_DID_ATTACHMENT_LINK"
	EnvStudioHTTPEndpoint  = "NODEX_STUDIO_HTTP_ENDPOINT"
	EnvServerPort          = "NODEX_SERVER_PORT" // Windows-only
	EnvListenFds           = "LISTEN_FDS"
	EnvListenPid           = "LISTEN_PID"
	EnvLogLevel            = "NODEX_LOG_LEVEL"
)

const (
	DefaultDidHTTPEndpoint    = "https://did.nodecross.io"
	DefaultDidAttachmentLink = "https://did.getnodex.io"
	DefaultStudioHTTPEndpoint = "https://http.hub.nodecross.io"
)

// Env is the resolved environment-derived configuration, loaded once at
// startup (matching the teacher's internal/cryptoinit bootstrap: load
// .env, then read with defaults).
type Env struct {
	DidHTTPEndpoint    string
	DidAttachmentLink  string
	StudioHTTPEndpoint string
	ServerPort         int // 0 if unset
	LogLevel           string
}

// LoadEnv loads a .env file (if present, ignored if absent) via
// godotenv, then resolves Env from the process environment with the
// spec's documented defaults.
func LoadEnv(dotenvPath string) (Env, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !os.IsNotExist(err) {
			return Env{}, err
		}
	}
	env := Env{
		DidHTTPEndpoint:    getOr(EnvDidHTTPEndpoint, DefaultDidHTTPEndpoint),
		DidAttachmentLink:  getOr(EnvDidAttachmentLink, DefaultDidAttachmentLink),
		StudioHTTPEndpoint: getOr(EnvStudioHTTPEndpoint, DefaultStudioHTTPEndpoint),
		LogLevel:           getOr(EnvLogLevel, "info"),
	}
	if v, ok := os.LookupEnv(EnvServerPort); ok {
		port, err := strconv.Atoi(v)
		if err == nil && port >= 1024 && port <= 65535 {
			env.ServerPort = port
		}
	}
	return env, nil
}

func getOr(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return fallback
}

// SocketActivated reports whether LISTEN_FDS/LISTEN_PID name this process
// as the recipient of an inherited listener (spec §6 glossary: "socket
// activation"). fd 3 is the first inherited descriptor by convention.
func SocketActivated() bool {
	listenPid, ok := os.LookupEnv(EnvListenPid)
	if !ok {
		return false
	}
	pid, err := strconv.Atoi(listenPid)
	if err != nil || pid != os.Getpid() {
		return false
	}
	fds, ok := os.LookupEnv(EnvListenFds)
	if !ok {
		return false
	}
	n, err := strconv.Atoi(fds)
	return err == nil && n > 0
}

// ListenFd is the well-known first inherited file descriptor under
// socket activation (spec §6 glossary).
const ListenFd = 3
