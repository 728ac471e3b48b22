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

// Package controller builds and publishes did:webvh log entries (C5):
// the identifier-creation flow described in spec §4.4, grounded on
// original_source/protocol/src/did_webvh/service/controller and the
// teacher's did/factory.go "assemble document, then register" shape.
package controller

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	gomultibase "github.com/multiformats/go-multibase"

	"github.com/nodecross/nodex/internal/jcs"
	"github.com/nodecross/nodex/internal/keyring"
	"github.com/nodecross/nodex/internal/multibase"
	"github.com/nodecross/nodex/internal/webvh/domain"
	"github.com/nodecross/nodex/internal/webvh/resolver"
)

// CreateIdentifier builds the initial log entry for uri (spec §4.4
// steps 1-6): placeholder substitution, update/prerotation parameters,
// the two verification methods, SCID computation, and proof signing.
// The returned LogEntry is ready to be appended to a log and published;
// Publish performs step 7.
func CreateIdentifier(uri string, enablePrerotation bool, kr *keyring.Keyring) (domain.LogEntry, error) {
	entry := domain.NewPlaceholderEntry(uri)

	updateMultibase, err := webvhUpdatePublicMultibase(kr)
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("webvh controller: update key: %w", err)
	}
	entry.Parameters.UpdateKeys = []string{updateMultibase}

	if enablePrerotation {
		recoveryMultibase, err := webvhRecoveryPublicMultibase(kr)
		if err != nil {
			return domain.LogEntry{}, fmt.Errorf("webvh controller: recovery key: %w", err)
		}
		hashes, err := domain.CalcNextKeyHashes([]string{recoveryMultibase})
		if err != nil {
			return domain.LogEntry{}, fmt.Errorf("webvh controller: next key hashes: %w", err)
		}
		entry.Parameters.NextKeyHashes = hashes
	}

	signJWK, err := kr.Sign.ToJWK(false)
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("webvh controller: signing jwk: %w", err)
	}
	encryptJWK, err := kr.Encrypt.ToJWK(false)
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("webvh controller: encryption jwk: %w", err)
	}
	entry.State.VerificationMethod = []domain.VerificationMethod{
		{ID: entry.State.ID + "#signingKey", Controller: entry.State.ID, Type: "JsonWebKey2020", PublicKeyJwk: signJWK},
		{ID: entry.State.ID + "#encryptionKey", Controller: entry.State.ID, Type: "JsonWebKey2020", PublicKeyJwk: encryptJWK},
	}

	placeholder, err := entry.ReplaceToSCIDPlaceholder()
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("webvh controller: %w", err)
	}
	scid, err := placeholder.CalcEntryHash()
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("webvh controller: scid: %w", err)
	}
	final, err := placeholder.WithSCID(scid)
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("webvh controller: %w", err)
	}
	entryHash, err := final.CalcEntryHash()
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("webvh controller: entry hash: %w", err)
	}
	final.VersionID = "1-" + entryHash

	proof, err := signProof(final, kr.WebvhUpdate, updateMultibase)
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("webvh controller: proof: %w", err)
	}
	final.Proof = []domain.Proof{proof}

	return final, nil
}

// signProof computes the eddsa-jcs-2022 data-integrity proof over the
// entry with any existing proof stripped (spec §4.4 step 6).
func signProof(entry domain.LogEntry, signer keyring.KeyPair, signerMultibase string) (domain.Proof, error) {
	proof := domain.GenerateProof(signerMultibase)
	stripped := entry
	stripped.Proof = nil
	canonical, err := jcs.Canonicalize(stripped)
	if err != nil {
		return domain.Proof{}, err
	}
	sig, err := signer.SignEdDSA(canonical)
	if err != nil {
		return domain.Proof{}, err
	}
	mb, err := gomultibase.Encode(gomultibase.Base58BTC, sig)
	if err != nil {
		return domain.Proof{}, err
	}
	proof.ProofValue = mb
	return proof, nil
}

func webvhUpdatePublicMultibase(kr *keyring.Keyring) (string, error) {
	_, pub, err := kr.WebvhUpdate.Ed25519Pair()
	if err != nil {
		return "", err
	}
	return multibase.EncodeEd25519(pub)
}

func webvhRecoveryPublicMultibase(kr *keyring.Keyring) (string, error) {
	_, pub, err := kr.WebvhRecovery.Ed25519Pair()
	if err != nil {
		return "", err
	}
	return multibase.EncodeEd25519(pub)
}

// Publish encodes entries, in order, as a JSON-lines body and PUTs it to
// logURL on the configured log store (spec §4.4 step 7).
func Publish(ctx context.Context, client *http.Client, logURL string, entries []domain.LogEntry) error {
	if client == nil {
		client = http.DefaultClient
	}
	body, err := resolver.EncodeJSONL(entries)
	if err != nil {
		return fmt.Errorf("webvh controller: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, logURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webvh controller: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/jsonlines")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webvh controller: publish: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("webvh controller: unexpected publish status %d", resp.StatusCode)
	}
	return nil
}
