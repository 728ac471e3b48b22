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

package sidetree

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Client submits create operations and resolves identifiers against a
// configured Sidetree node, mirroring the teacher's did/resolver.go
// Resolver shape (ctx-first methods, explicit not-found handling).
type Client struct {
	Endpoint   string
	HTTPClient *http.Client
}

// NewClient builds a Client bound to endpoint; a zero HTTPClient falls
// back to http.DefaultClient.
func NewClient(endpoint string, httpClient *http.Client) (*Client, error) {
	if endpoint == "" {
		return nil, ErrEndpointUnconfigured
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{Endpoint: endpoint, HTTPClient: httpClient}, nil
}

// SubmitCreate POSTs a create operation to the configured endpoint
// (spec §4.2 step 5).
func (c *Client) SubmitCreate(ctx context.Context, op CreateOperation) error {
	body, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("sidetree: marshal operation: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/operations", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sidetree: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("sidetree: submit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

// Resolve GETs the published identifier: (response, true, nil) on 200,
// (nil, false, nil) on 404 ("absence"), or an error otherwise (spec
// §4.2's "Resolution is a GET").
func (c *Client) Resolve(ctx context.Context, did string) (*DidResolutionResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"/identifiers/"+did, nil)
	if err != nil {
		return nil, false, fmt.Errorf("sidetree: build request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("sidetree: resolve: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, false, nil
	case http.StatusOK:
		var out DidResolutionResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return &out, true, nil
	default:
		return nil, false, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
}
