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
	"encoding/json"
	"fmt"
	"net"
	"net/http"
)

// versionResponse mirrors the agent's GET /internal/version/get shape
// (spec §6), grounded on the original's VersionResponse.
type versionResponse struct {
	Version string `json:"version"`
}

// udsHTTPClient builds an http.Client whose transport dials a Unix
// domain socket instead of TCP, used to reach the agent's internal API
// over the primary UDS (spec §6).
func udsHTTPClient(udsPath string) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", udsPath)
			},
		},
	}
}

// GetVersion queries the agent's internal API over the primary UDS for
// its currently-running version (spec §4.11 step 6's polling target).
func (rm *RuntimeManager) GetVersion(ctx context.Context) (string, error) {
	client := udsHTTPClient(rm.udsPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://unix/internal/version/get", nil)
	if err != nil {
		return "", fmt.Errorf("supervisor: build version request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("supervisor: version request: %w", err)
	}
	defer resp.Body.Close()
	var out versionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("supervisor: decode version response: %w", err)
	}
	return out.Version, nil
}
