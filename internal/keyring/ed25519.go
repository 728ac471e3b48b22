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

package keyring

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateEd25519 draws a fresh Ed25519 key pair, used for the webvh
// update and webvh recovery keys (spec §3, §4.4).
func GenerateEd25519() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("keyring: generate ed25519: %w", err)
	}
	return KeyPair{
		Curve:     CurveEd25519,
		SecretHex: hex.EncodeToString(priv.Seed()),
		PublicHex: hex.EncodeToString(pub),
	}, nil
}

// Ed25519Pair decodes and cross-checks the stored hex pair.
func (kp KeyPair) Ed25519Pair() (ed25519.PrivateKey, ed25519.PublicKey, error) {
	seed, err := hex.DecodeString(kp.SecretHex)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, nil, fmt.Errorf("%w: secret key", ErrKeyDecode)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub, err := hex.DecodeString(kp.PublicHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return nil, nil, fmt.Errorf("%w: public key", ErrKeyDecode)
	}
	if !bytes.Equal(priv.Public().(ed25519.PublicKey), pub) {
		return nil, nil, ErrPublicKeyMismatch
	}
	return priv, ed25519.PublicKey(pub), nil
}

// SignEdDSA signs payload with this pair's Ed25519 key, used by the webvh
// data-integrity proof (eddsa-jcs-2022) and the CBOR/COSE envelope.
func (kp KeyPair) SignEdDSA(payload []byte) ([]byte, error) {
	priv, _, err := kp.Ed25519Pair()
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(priv, payload), nil
}

// VerifyEdDSA verifies an Ed25519 signature against a raw 32-byte public key.
func VerifyEdDSA(pub, payload, signature []byte) error {
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: public key length", ErrKeyDecode)
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), payload, signature) {
		return ErrInvalidSignature
	}
	return nil
}
