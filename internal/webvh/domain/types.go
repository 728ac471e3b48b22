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

// Package domain implements the did:webvh data model (C4): parsed
// identifier types, the DID document, and the immutable log-entry
// builder, grounded on
// original_source/protocol/src/did_webvh/domain/did_log_entry.rs.
package domain

import "errors"

const (
	Method           = "did:webvh:0.5"
	CryptoSuite      = "eddsa-jcs-2022"
	SCIDPlaceholder  = "{SCID}"
	ProofTypeDataInt = "DataIntegrityProof"
	ProofPurposeAuth = "authentication"
)

var (
	ErrInvalidVersionID   = errors.New("webvh: invalid version id")
	ErrInvalidVersionTime = errors.New("webvh: invalid version time")
	ErrInvalidState       = errors.New("webvh: invalid state")
	ErrInvalidFormat      = errors.New("webvh: invalid format")
)

// VerificationMethod is one entry of a DidDocument's verificationMethod array.
type VerificationMethod struct {
	ID                 string `json:"id"`
	Controller         string `json:"controller"`
	Type               string `json:"type"`
	PublicKeyJwk       any    `json:"publicKeyJwk,omitempty"`
	PublicKeyMultibase string `json:"publicKeyMultibase,omitempty"`
}

// Service is one entry of a DidDocument's service array.
type Service struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint"`
}

// DidDocument is the did:webvh "state" carried by every log entry.
type DidDocument struct {
	Context            []string              `json:"@context"`
	ID                 string                 `json:"id"`
	Authentication     []string               `json:"authentication,omitempty"`
	AssertionMethod    []string               `json:"assertionMethod,omitempty"`
	VerificationMethod []VerificationMethod   `json:"verificationMethod,omitempty"`
	Service            []Service              `json:"service,omitempty"`
}

// NewDidDocument builds the minimal initial document for a fresh
// identifier, matching the teacher's did/did.go-style "assemble and
// extend" construction pattern.
func NewDidDocument(id string) DidDocument {
	return DidDocument{
		Context: []string{"https://www.w3.org/ns/did/v1"},
		ID:      id,
	}
}

// Witness is one weighted witness entry of a WitnessConfig.
type Witness struct {
	ID     string `json:"id"`
	Weight uint32 `json:"weight"`
}

// WitnessConfig names the log's optional multi-witness policy.
type WitnessConfig struct {
	Threshold uint32    `json:"threshold"`
	Witnesses []Witness `json:"witnesses"`
}

// Parameters carries the per-entry protocol parameters (spec §3).
type Parameters struct {
	Portable       *bool          `json:"portable,omitempty"`
	UpdateKeys     []string       `json:"updateKeys,omitempty"`
	NextKeyHashes  []string       `json:"nextKeyHashes,omitempty"`
	Method         string         `json:"method,omitempty"`
	SCID           string         `json:"scid,omitempty"`
	Deactivate     *bool          `json:"deactivate,omitempty"`
	Witness        *WitnessConfig `json:"witness,omitempty"`
	TTL            *uint32        `json:"ttl,omitempty"`
}

// Proof is a single data-integrity proof (eddsa-jcs-2022).
type Proof struct {
	Type               string `json:"type"`
	Cryptosuite        string `json:"cryptosuite"`
	VerificationMethod string `json:"verificationMethod"`
	Created            string `json:"created"`
	ProofPurpose       string `json:"proofPurpose"`
	ProofValue         string `json:"proofValue"`
}

// LogEntry is one ordered tuple (version_id, version_time, parameters,
// state, proof[]) of a did:webvh log (spec §3).
type LogEntry struct {
	VersionID   string      `json:"versionId"`
	VersionTime string      `json:"versionTime"`
	Parameters  Parameters  `json:"parameters"`
	State       DidDocument `json:"state"`
	Proof       []Proof     `json:"proof,omitempty"`
}
