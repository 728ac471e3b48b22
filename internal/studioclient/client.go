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

// Package studioclient is the ambient HTTP client every one of C7-C10's
// outputs ultimately posts through (spec §6, SPEC_FULL.md §4.12): HMAC
// request signing for /v1/device, CBOR POST for the metrics-family
// endpoints, and DIDComm-JWE POST/PUT for /v1/network and
// /v1/message-activity. Exponential backoff on 5xx, immediate
// propagation of 4xx, grounded on
// pkg/agent/transport/http/client.go's HTTPTransport shape.
package studioclient

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/nodecross/nodex/internal/transport"
)

// Client is the studio HTTP API client (spec §6's endpoint table).
type Client struct {
	BaseURL    string
	SecretHex  string // HMAC-SHA256 pre-shared key, hex (network config's secret_key)
	HTTPClient *http.Client

	MaxRetries int           // 5xx retry attempts, default 5
	BaseDelay  time.Duration // exponential backoff base, default 200ms
}

// NewClient builds a Client against baseURL; a zero HTTPClient falls
// back to http.DefaultClient.
func NewClient(baseURL, secretHex string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: baseURL, SecretHex: secretHex, HTTPClient: httpClient, MaxRetries: 5, BaseDelay: 200 * time.Millisecond}
}

// sign computes X-Nodex-Signature: hex(hmac_sha256(secret, body)) (spec
// §6).
func (c *Client) sign(body []byte) (string, error) {
	key, err := hex.DecodeString(c.SecretHex)
	if err != nil {
		return "", fmt.Errorf("studioclient: decode secret: %w", err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// RegisterDevice POSTs {device_did, project_did} to /v1/device with HMAC
// auth (spec §6).
func (c *Client) RegisterDevice(ctx context.Context, deviceDid, projectDid string) error {
	body, err := json.Marshal(map[string]string{"device_did": deviceDid, "project_did": projectDid})
	if err != nil {
		return fmt.Errorf("studioclient: marshal device registration: %w", err)
	}
	sig, err := c.sign(body)
	if err != nil {
		return err
	}
	return c.doWithRetry(ctx, http.MethodPost, "/v1/device", "application/json", body, map[string]string{"X-Nodex-Signature": sig})
}

// PostDeviceInfo POSTs a COSE_Sign1(CBOR) envelope to /v1/device-info
// (no auth header required per spec §6).
func (c *Client) PostDeviceInfo(ctx context.Context, envelope []byte) error {
	return c.doWithRetry(ctx, http.MethodPost, "/v1/device-info", "application/cbor", envelope, nil)
}

// PostMetrics POSTs a COSE_Sign1(CBOR) metrics envelope to /v1/metrics
// (spec §6, the metrics pipeline's Poster).
func (c *Client) PostMetrics(ctx context.Context, envelope []byte) error {
	return c.doWithRetry(ctx, http.MethodPost, "/v1/metrics", "application/cbor", envelope, nil)
}

// PostEvents, PostCustomMetrics, PostTagValues share /v1/metrics's
// envelope shape (spec §6's "same envelope" grouping).
func (c *Client) PostEvents(ctx context.Context, envelope []byte) error {
	return c.doWithRetry(ctx, http.MethodPost, "/v1/events", "application/cbor", envelope, nil)
}

func (c *Client) PostCustomMetrics(ctx context.Context, envelope []byte) error {
	return c.doWithRetry(ctx, http.MethodPost, "/v1/custom-metrics", "application/cbor", envelope, nil)
}

func (c *Client) PostTagValues(ctx context.Context, envelope []byte) error {
	return c.doWithRetry(ctx, http.MethodPost, "/v1/tag-values", "application/cbor", envelope, nil)
}

// PostNetwork POSTs a DIDComm JWE to /v1/network (spec §6).
func (c *Client) PostNetwork(ctx context.Context, jwe []byte) error {
	return c.doWithRetry(ctx, http.MethodPost, "/v1/network", "application/json", jwe, nil)
}

// PutMessageActivity PUTs a DIDComm JWE to /v1/message-activity (spec
// §6 lists POST/PUT; PUT is used for idempotent activity updates).
func (c *Client) PutMessageActivity(ctx context.Context, jwe []byte) error {
	return c.doWithRetry(ctx, http.MethodPut, "/v1/message-activity", "application/json", jwe, nil)
}

// Post implements internal/metrics.Poster directly, so the metrics
// pipeline can hold a *Client without an adapter.
func (c *Client) Post(ctx context.Context, envelope []byte) error {
	return c.PostMetrics(ctx, envelope)
}

func (c *Client) doWithRetry(ctx context.Context, method, path, contentType string, body []byte, headers map[string]string) error {
	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		err := c.do(ctx, method, path, contentType, body, headers)
		if err == nil {
			return nil
		}
		lastErr = err
		if !transport.Retryable(err) {
			return err
		}
		delay := c.BaseDelay * time.Duration(math.Pow(2, float64(attempt)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("studioclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", transport.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return transport.ClassifyStatus(resp.StatusCode)
}
