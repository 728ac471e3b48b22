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

package vc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/nodecross/nodex/internal/jcs"
	"github.com/nodecross/nodex/internal/keyring"
)

// jwsHeader is the fixed detached-JWS header spec §4.6 requires: b64=false
// with crit=["b64"] so the payload segment is never base64url-encoded.
type jwsHeader struct {
	Alg  string   `json:"alg"`
	B64  bool     `json:"b64"`
	Crit []string `json:"crit"`
}

var header = jwsHeader{Alg: "ES256K", B64: false, Crit: []string{"b64"}}

// SignParams names the issuer DID, key fragment, and signing key used by Sign.
type SignParams struct {
	DID        string
	KeyID      string // verificationMethod fragment, e.g. "signingKey"
	SigningKey keyring.KeyPair
}

// Sign attaches an EcdsaSecp256k1Signature2019 proof to vc using a
// detached JWS (spec §4.6). The VC bytes are JCS-canonicalized and never
// base64url-encoded before signing, since the header pins b64=false.
func Sign(vcModel VerifiableCredential, params SignParams) (*VerifiableCredential, error) {
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("vc: marshal header: %w", err)
	}
	encodedHeader := base64.RawURLEncoding.EncodeToString(headerJSON)

	vcBytes, err := jcs.Canonicalize(vcModel)
	if err != nil {
		return nil, fmt.Errorf("vc: canonicalize: %w", err)
	}

	signingPayload := append([]byte(encodedHeader+"."), vcBytes...)
	sig, err := params.SigningKey.SignSecp256k1ES256K(signingPayload)
	if err != nil {
		return nil, fmt.Errorf("vc: sign: %w", err)
	}
	encodedSig := base64.RawURLEncoding.EncodeToString(sig)
	jws := encodedHeader + ".." + encodedSig

	signed := vcModel
	signed.Proof = &Proof{
		Type:               "EcdsaSecp256k1Signature2019",
		ProofPurpose:       "authentication",
		Created:            formatIssuanceDate(vcModel.IssuanceDate),
		VerificationMethod: params.DID + "#" + params.KeyID,
		JWS:                jws,
	}
	return &signed, nil
}

func formatIssuanceDate(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

// Verify checks a signed VC's detached JWS against pub, the signer's
// resolved secp256k1 public key. Returns ErrProofNotFound if proof is
// absent, matching spec §4.6.
func Verify(signed *VerifiableCredential, pub *secp256k1.PublicKey) error {
	if signed.Proof == nil {
		return ErrProofNotFound
	}
	unsigned := *signed
	unsigned.Proof = nil

	parts, err := splitDetachedJWS(signed.Proof.JWS)
	if err != nil {
		return err
	}
	vcBytes, err := jcs.Canonicalize(unsigned)
	if err != nil {
		return fmt.Errorf("vc: canonicalize: %w", err)
	}
	signingPayload := append([]byte(parts.header+"."), vcBytes...)
	sig, err := base64.RawURLEncoding.DecodeString(parts.sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	if err := keyring.VerifySecp256k1(pub, signingPayload, sig); err != nil {
		return ErrSignatureInvalid
	}
	return nil
}

type detachedJWSParts struct {
	header string
	sig    string
}

func splitDetachedJWS(jws string) (detachedJWSParts, error) {
	var headerEnd, sigStart int = -1, -1
	for i := 0; i < len(jws); i++ {
		if jws[i] == '.' {
			if headerEnd < 0 {
				headerEnd = i
			} else {
				sigStart = i + 1
				break
			}
		}
	}
	if headerEnd < 0 || sigStart < 0 {
		return detachedJWSParts{}, fmt.Errorf("%w: malformed jws", ErrSignatureInvalid)
	}
	return detachedJWSParts{header: jws[:headerEnd], sig: jws[sigStart:]}, nil
}
