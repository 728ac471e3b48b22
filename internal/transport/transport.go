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

// Package transport classifies studio HTTP outcomes into the status-code
// taxonomy of spec §6/§7: one sentinel per distinct 4xx the studio API
// returns, a retryable 5xx kind, a connection-failure kind, and the
// body-too-large kind scenario S5 treats as transport-class. Grounded on
// did/types.go's DIDError{Code, Message, Details} pattern, generalized
// into one error kind per HTTP status instead of one struct per DID
// failure.
package transport

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrBadRequest         = errors.New("transport: bad request (400)")
	ErrUnauthorized       = errors.New("transport: unauthorized (401)")
	ErrForbidden          = errors.New("transport: forbidden (403)")
	ErrNotFound           = errors.New("transport: not found (404)")
	ErrConflict           = errors.New("transport: conflict (409)")
	ErrServerError        = errors.New("transport: server error (5xx)")
	ErrConnectionFailed   = errors.New("transport: connection failed")
	ErrBodyTooLarge       = errors.New("transport: body exceeds size limit")
	ErrUnexpectedResponse = errors.New("transport: unexpected response")
)

// ClassifyStatus maps an HTTP status code to its taxonomy sentinel.
// Only 5xx is retryable (spec §7: "Retry is reserved for HTTP 5xx").
func ClassifyStatus(status int) error {
	switch status {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		if status >= 500 {
			return ErrServerError
		}
		return fmt.Errorf("%w: status %d", ErrUnexpectedResponse, status)
	}
}

// Retryable reports whether err's underlying classification should be
// retried with backoff (5xx only; verification failures are never
// retried per spec §7).
func Retryable(err error) bool {
	return errors.Is(err, ErrServerError)
}
