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

// Package vc implements the verifiable-credential signer (C7): a
// detached-JWS (b64=false) proof over a JCS-canonicalized credential,
// grounded on
// original_source/protocol/src/verifiable_credentials/credential_signer.rs
// and did_vc.rs, and on spec §4.6's exact byte-level algorithm.
package vc

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrProofNotFound   = errors.New("vc: proof not found")
	ErrSignatureInvalid = errors.New("vc: signature invalid")
)

// Issuer is the VC issuer block.
type Issuer struct {
	ID string `json:"id"`
}

// CredentialSubject carries an arbitrary subject payload.
type CredentialSubject struct {
	ID        string          `json:"id,omitempty"`
	Container json.RawMessage `json:"container"`
}

// Proof is the EcdsaSecp256k1Signature2019 detached-JWS proof block.
type Proof struct {
	Type               string `json:"type"`
	ProofPurpose       string `json:"proofPurpose"`
	Created            string `json:"created"`
	VerificationMethod string `json:"verificationMethod"`
	JWS                string `json:"jws"`
	Domain             string `json:"domain,omitempty"`
	Controller         string `json:"controller,omitempty"`
	Challenge          string `json:"challenge,omitempty"`
}

// VerifiableCredential is the signed/unsigned credential envelope.
type VerifiableCredential struct {
	ID                string            `json:"id,omitempty"`
	Type              []string          `json:"type"`
	Issuer            Issuer            `json:"issuer"`
	Context           []string          `json:"@context"`
	IssuanceDate      time.Time         `json:"issuanceDate"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
	ExpirationDate    *time.Time        `json:"expirationDate,omitempty"`
	Proof             *Proof            `json:"proof,omitempty"`
}
