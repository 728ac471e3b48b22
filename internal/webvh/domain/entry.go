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

package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nodecross/nodex/internal/jcs"
	"github.com/nodecross/nodex/internal/multibase"
)

// NewPlaceholderEntry instantiates entry 1 with {SCID} substituted
// everywhere it will eventually carry the computed SCID (spec §4.4 step 1).
func NewPlaceholderEntry(uri string) LogEntry {
	did := "did:webvh:" + SCIDPlaceholder + ":" + uri
	return LogEntry{
		VersionID:   SCIDPlaceholder,
		VersionTime: time.Now().UTC().Format(time.RFC3339),
		Parameters: Parameters{
			Method: Method,
			SCID:   SCIDPlaceholder,
		},
		State: NewDidDocument(did),
	}
}

// ParseVersionID splits "<n>-<multihash>" into its integer sequence
// number and hash component.
func (e LogEntry) ParseVersionID() (int, string, error) {
	parts := strings.SplitN(e.VersionID, "-", 2)
	if len(parts) != 2 {
		return 0, "", ErrInvalidVersionID
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", ErrInvalidVersionID
	}
	return n, parts[1], nil
}

// GenerateNextLogEntry builds entry n+1 from entry n, carrying forward
// parameters and state (the caller then mutates whatever parameters
// change before signing).
func (e LogEntry) GenerateNextLogEntry() (LogEntry, error) {
	n, _, err := e.ParseVersionID()
	if err != nil {
		return LogEntry{}, err
	}
	next := e
	next.VersionID = fmt.Sprintf("%d-", n+1) // hash filled in once the entry content is final
	next.VersionTime = time.Now().UTC().Format(time.RFC3339)
	next.Proof = nil
	return next, nil
}

// ReplaceToSCIDPlaceholder returns a copy of entry 1 with its version_id,
// parameters.scid, and state.id all rewritten to the {SCID} placeholder,
// as required to recompute/verify the SCID (spec §4.3, §4.5).
func (e LogEntry) ReplaceToSCIDPlaceholder() (LogEntry, error) {
	entry := e
	entry.Parameters.SCID = SCIDPlaceholder
	entry.VersionID = SCIDPlaceholder
	newID, err := ReplaceSCID(entry.State.ID, SCIDPlaceholder)
	if err != nil {
		return LogEntry{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	entry.State.ID = newID
	return entry, nil
}

// WithSCID returns a copy of entry 1 with versionId, parameters.scid and
// the SCID segment of state.id set to the computed scid. {SCID} text in
// any other field, such as verification method ids, is left unchanged.
func (e LogEntry) WithSCID(scid string) (LogEntry, error) {
	entry := e
	entry.Parameters.SCID = scid
	entry.VersionID = scid
	newID, err := ReplaceSCID(entry.State.ID, scid)
	if err != nil {
		return LogEntry{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	entry.State.ID = newID
	return entry, nil
}

// CalcEntryHash computes the base58btc sha2-256 multihash of the entry's
// JCS-canonical form with proof removed. For entry 1 with {SCID}
// placeholders substituted, this is exactly the SCID algorithm (spec
// §4.3); for any other entry it is the entry-hash algorithm (spec §4.3
// non-initial case).
func (e LogEntry) CalcEntryHash() (string, error) {
	stripped := e
	stripped.Proof = nil
	canonical, err := jcs.Canonicalize(stripped)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	hash, err := multibase.MultihashSHA256(canonical)
	if err != nil {
		return "", err
	}
	return hash, nil
}

// CalcNextKeyHashes multihashes each of the given multibase-encoded keys,
// for populating parameters.next_key_hashes (prerotation commitment).
func CalcNextKeyHashes(keys []string) ([]string, error) {
	out := make([]string, len(keys))
	for i, k := range keys {
		h, err := multibase.MultihashOf(k)
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

// GenerateProof builds the Proof structure (not yet signed) for an
// Ed25519 multibase-encoded public key.
func GenerateProof(publicKeyMultibase string) Proof {
	key := "did:key:" + publicKeyMultibase + "#" + publicKeyMultibase
	return Proof{
		Type:               ProofTypeDataInt,
		Cryptosuite:        CryptoSuite,
		VerificationMethod: key,
		Created:            time.Now().UTC().Format(time.RFC3339),
		ProofPurpose:       ProofPurposeAuth,
	}
}
