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

//go:build unix

// Package supervisor's fd-passing half: SCM_RIGHTS ancillary messages
// over the meta UDS, grounded directly on
// original_source/controller/src/unix_utils.rs's send_fd/recv_fd (no
// fd-passing library appears anywhere in the pack; built on
// golang.org/x/sys/unix, already an indirect dependency of the teacher's
// stack).
package supervisor

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

var ErrNoFd = errors.New("supervisor: no file descriptor received")

// sendFd sends one byte plus (optionally) an SCM_RIGHTS control message
// carrying fd over the connected Unix socket txFd. A nil fd sends the
// "no listener" sentinel byte (0x01) with no control message, mirroring
// the original's Option<RawFd> encoding.
func sendFd(txFd int, fd *int) error {
	if fd == nil {
		if err := unix.Sendmsg(txFd, []byte{1}, nil, nil, 0); err != nil {
			return fmt.Errorf("supervisor: sendmsg (no fd): %w", err)
		}
		return nil
	}
	rights := unix.UnixRights(*fd)
	if err := unix.Sendmsg(txFd, []byte{0}, rights, nil, 0); err != nil {
		return fmt.Errorf("supervisor: sendmsg (fd=%d): %w", *fd, err)
	}
	return nil
}

// recvFd blocks for one message on socket and decodes either the
// "no listener" sentinel or a received fd out of its SCM_RIGHTS
// ancillary data.
func recvFd(socket int) (*int, error) {
	buf := make([]byte, 1)
	oob := make([]byte, unix.CmsgSpace(4))
	n, oobn, _, _, err := unix.Recvmsg(socket, buf, oob, 0)
	if err != nil {
		return nil, fmt.Errorf("supervisor: recvmsg: %w", err)
	}
	if n >= 1 && buf[0] == 1 {
		return nil, nil
	}
	cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return nil, fmt.Errorf("supervisor: parse control message: %w", err)
	}
	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			continue
		}
		if len(fds) > 0 {
			return &fds[0], nil
		}
	}
	return nil, ErrNoFd
}
