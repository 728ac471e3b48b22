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

package studioclient

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nodecross/nodex/internal/transport"
)

func TestRegisterDeviceSignsBody(t *testing.T) {
	secret := "a1b2c3"
	var gotSig string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Nodex-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL, secret, nil)
	require.NoError(t, c.RegisterDevice(context.Background(), "did:nodex:test:device", "did:nodex:test:project"))

	key, err := hex.DecodeString(secret)
	require.NoError(t, err)
	mac := hmac.New(sha256.New, key)
	mac.Write(gotBody)
	require.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotSig)
}

func TestDoWithRetryRetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL, "00", nil)
	c.BaseDelay = time.Millisecond
	require.NoError(t, c.PostMetrics(context.Background(), []byte("envelope")))
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDoWithRetryPropagates4xxImmediately(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(server.URL, "00", nil)
	c.BaseDelay = time.Millisecond
	err := c.PostMetrics(context.Background(), []byte("envelope"))
	require.ErrorIs(t, err, transport.ErrNotFound)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPostImplementsMetricsPoster(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/metrics", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL, "00", nil)
	require.NoError(t, c.Post(context.Background(), []byte("envelope")))
}
