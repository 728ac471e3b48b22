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

// Package sidetree implements the create-only Sidetree DID method (C3):
// building and submitting a single create operation, and resolving a
// published identifier. There is no Sidetree implementation anywhere in
// the example pack (the teacher's DID methods are blockchain-registry
// based), so the operation algorithm is grounded directly on spec §4.2;
// the transport/Resolve-interface shape follows the teacher's
// did/resolver.go (ctx-first methods, typed result, explicit not-found
// handling).
package sidetree

import "errors"

// PublicKeyEntry is one entry of a DidPatchDocument's public_keys array.
type PublicKeyEntry struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	PublicKeyJwk any      `json:"publicKeyJwk"`
	Purposes     []string `json:"purposes"`
}

// DidPatchDocument is the document embedded in a REPLACE patch.
type DidPatchDocument struct {
	PublicKeys []PublicKeyEntry `json:"publicKeys"`
	Services   []any             `json:"services"`
}

// ReplacePatch is the sole patch kind this method emits (create-only,
// spec §4.2 step 1).
type ReplacePatch struct {
	Action   string           `json:"action"`
	Document DidPatchDocument `json:"document"`
}

// Delta carries the patch list and the update commitment.
type Delta struct {
	Patches         []ReplacePatch `json:"patches"`
	UpdateCommitment string        `json:"updateCommitment"`
}

// SuffixData carries the delta hash and the recovery commitment.
type SuffixData struct {
	DeltaHash          string `json:"deltaHash"`
	RecoveryCommitment string `json:"recoveryCommitment"`
}

// CreateOperation is the wire request body for a Sidetree create operation.
type CreateOperation struct {
	Type       string `json:"type"`
	Delta      string `json:"delta"`      // base64url(jcs(Delta))
	SuffixData string `json:"suffixData"` // base64url(jcs(SuffixData))
}

// DidResolutionResponse is the successful GET response body.
type DidResolutionResponse struct {
	DidDocument    any `json:"didDocument"`
	DidDocumentMetadata any `json:"didDocumentMetadata"`
}

var (
	ErrEndpointUnconfigured = errors.New("sidetree: endpoint not configured")
	ErrUnexpectedStatus     = errors.New("sidetree: unexpected response status")
	ErrMalformedResponse    = errors.New("sidetree: malformed response body")
)
