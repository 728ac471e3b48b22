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
	"errors"
	"fmt"
	"net"
	"os"
)

// ErrNoListenerHandedOver is returned by ReceiveListener when the
// supervisor passed the "no listener" sentinel, meaning the agent must
// bind its own fresh net.Listener instead (spec §4.10: "else create a
// fresh listener").
var ErrNoListenerHandedOver = errors.New("supervisor: no listener fd handed over")

// ReceiveListener is the agent-side half of the fd-handover choreography
// (spec §4.10/§6): it binds the transient meta UDS, accepts exactly one
// connection from the supervisor, and decodes the SCM_RIGHTS payload
// into a usable net.Listener. The meta UDS is removed once the
// handshake completes, since it "exists only during handover".
func ReceiveListener(metaUdsPath string) (net.Listener, error) {
	removeIfExists(metaUdsPath)
	ln, err := net.Listen("unix", metaUdsPath)
	if err != nil {
		return nil, fmt.Errorf("supervisor: bind meta uds: %w", err)
	}
	defer func() {
		ln.Close()
		removeIfExists(metaUdsPath)
	}()

	conn, err := ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("supervisor: accept meta uds: %w", err)
	}
	defer conn.Close()

	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return nil, fmt.Errorf("supervisor: meta uds connection is not unix")
	}
	rawConn, err := unixConn.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("supervisor: meta uds raw conn: %w", err)
	}

	var fd *int
	var recvErr error
	if err := rawConn.Control(func(sysFd uintptr) {
		fd, recvErr = recvFd(int(sysFd))
	}); err != nil {
		return nil, fmt.Errorf("supervisor: meta uds control: %w", err)
	}
	if recvErr != nil {
		return nil, recvErr
	}
	if fd == nil {
		return nil, ErrNoListenerHandedOver
	}

	file := os.NewFile(uintptr(*fd), "inherited-listener")
	listener, err := net.FileListener(file)
	file.Close()
	if err != nil {
		return nil, fmt.Errorf("supervisor: wrap inherited fd: %w", err)
	}
	return listener, nil
}
