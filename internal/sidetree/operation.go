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
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/nodecross/nodex/internal/jcs"
	"github.com/nodecross/nodex/internal/keyring"
	"github.com/nodecross/nodex/internal/multibase"
)

var b64url = base64.RawURLEncoding

// BuildCreateOperation assembles the single create operation for a fresh
// identifier from the signing and encryption key pairs, following spec
// §4.2's five build steps. updateKeyPair and recoveryKeyPair seed the
// update/recovery commitments (double-hashed) independently of the two
// public keys embedded in the document.
func BuildCreateOperation(signKeyPair, encryptKeyPair, updateKeyPair, recoveryKeyPair keyring.KeyPair) (CreateOperation, error) {
	signJWK, err := signKeyPair.ToJWK(false)
	if err != nil {
		return CreateOperation{}, fmt.Errorf("sidetree: signing jwk: %w", err)
	}
	encryptJWK, err := encryptKeyPair.ToJWK(false)
	if err != nil {
		return CreateOperation{}, fmt.Errorf("sidetree: encryption jwk: %w", err)
	}

	document := DidPatchDocument{
		PublicKeys: []PublicKeyEntry{
			{ID: "signingKey", Type: "EcdsaSecp256k1VerificationKey2019", PublicKeyJwk: signJWK, Purposes: []string{"authentication"}},
			{ID: "encryptionKey", Type: "X25519KeyAgreementKey2019", PublicKeyJwk: encryptJWK, Purposes: []string{"keyAgreement"}},
		},
		Services: []any{},
	}

	updateCommitment, err := commitmentOf(updateKeyPair)
	if err != nil {
		return CreateOperation{}, fmt.Errorf("sidetree: update commitment: %w", err)
	}
	recoveryCommitment, err := commitmentOf(recoveryKeyPair)
	if err != nil {
		return CreateOperation{}, fmt.Errorf("sidetree: recovery commitment: %w", err)
	}

	delta := Delta{
		Patches:          []ReplacePatch{{Action: "replace", Document: document}},
		UpdateCommitment: updateCommitment,
	}
	deltaCanonical, err := jcs.Canonicalize(delta)
	if err != nil {
		return CreateOperation{}, fmt.Errorf("sidetree: canonicalize delta: %w", err)
	}
	deltaHash := singleHash(deltaCanonical)

	suffix := SuffixData{DeltaHash: deltaHash, RecoveryCommitment: recoveryCommitment}
	suffixCanonical, err := jcs.Canonicalize(suffix)
	if err != nil {
		return CreateOperation{}, fmt.Errorf("sidetree: canonicalize suffix: %w", err)
	}

	return CreateOperation{
		Type:       "create",
		Delta:      b64url.EncodeToString(deltaCanonical),
		SuffixData: b64url.EncodeToString(suffixCanonical),
	}, nil
}

// commitmentOf computes the double-hash commitment for an update or
// recovery key pair (spec §4.2 step 2): sha256 the canonical JWK once to
// get the reveal value, then base58btc sha2-256 multihash-encode that
// digest. The two-level hash is Sidetree's commit-reveal scheme: a
// future recovery/update operation reveals the first-level hash, which
// must itself hash to this commitment.
func commitmentOf(kp keyring.KeyPair) (string, error) {
	jwk, err := kp.ToJWK(false)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Canonicalize(jwk)
	if err != nil {
		return "", err
	}
	revealValue := sha256.Sum256(canonical)
	return multibase.MultihashSHA256(revealValue[:])
}

// singleHash is delta_hash's single-pass half of the asymmetry (spec
// §4.2 step 3): base64url of a plain sha256 digest, no multihash/base58
// wrapping.
func singleHash(data []byte) string {
	sum := sha256.Sum256(data)
	return b64url.EncodeToString(sum[:])
}
