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

// Package cose implements the bearer-token CBOR/COSE envelope (C9): a
// COSE_Sign1 wrapping {token, inner} CBOR bytes, EdDSA-signed, grounded
// on original_source/protocol/src/cbor/sign.rs's Token/WithToken/
// sign_message/verify_message. No ecosystem COSE library is wired in
// this pack's go.mod (see DESIGN.md); the Sig_structure and envelope are
// hand-built on fxamacker/cbor/v2, using its "toarray" struct tag to get
// COSE_Sign1's 4-element array shape without a generic CBOR Marshal/
// reflection dance.
package cose

import "errors"

// algEdDSA is the COSE algorithm label for EdDSA (RFC 8152 table 5).
const algEdDSA = -8

// headerLabelAlg is the COSE common header parameter label for "alg".
const headerLabelAlg = 1

// Token is the bearer-token header carried alongside every envelope's
// payload: the signer's DID and an absolute Unix-seconds expiry, always
// issued with a 1-hour window (spec §3, §4.8).
type Token struct {
	DID string `cbor:"did"`
	Exp int64  `cbor:"exp"`
}

// Envelope is the CBOR-encoded {token, inner} payload that sign1Message
// wraps (spec §3: "COSE_Sign1 over CBOR bytes of {token:{did, exp},
// inner:<payload>}").
type Envelope struct {
	Token Token       `cbor:"token"`
	Inner interface{} `cbor:"inner"`
}

// sign1Message is the COSE_Sign1 structure (RFC 9052 §4.2): a 4-element
// CBOR array of [protected bstr, unprotected map, payload bstr,
// signature bstr]. The "toarray" tag maps struct fields to array
// elements positionally.
type sign1Message struct {
	_           struct{}               `cbor:",toarray"`
	Protected   []byte
	Unprotected map[interface{}]interface{}
	Payload     []byte
	Signature   []byte
}

// Error taxonomy, spec §7's "Envelope" kinds.
var (
	ErrCBORDecode        = errors.New("cose: cbor decode failure")
	ErrCOSEDecode        = errors.New("cose: cose decode failure")
	ErrTokenExpired      = errors.New("cose: token expired")
	ErrSignatureMismatch = errors.New("cose: signature mismatch")
)
