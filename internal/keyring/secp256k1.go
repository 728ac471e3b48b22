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
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// GenerateSecp256k1 draws a fresh secp256k1 key pair from rand.Reader,
// storing the public key uncompressed (65 bytes) per spec §4.1.
func GenerateSecp256k1() (KeyPair, error) {
	sk, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return KeyPair{}, fmt.Errorf("keyring: generate secp256k1: %w", err)
	}
	pub := sk.PubKey()
	return KeyPair{
		Curve:     CurveSecp256k1,
		SecretHex: hex.EncodeToString(sk.Serialize()),
		PublicHex: hex.EncodeToString(pub.SerializeUncompressed()),
	}, nil
}

// secp256k1Pair decodes the hex secret and recomputes + cross-checks the
// public key, accepting either a 33-byte compressed or 65-byte
// uncompressed stored public key (spec §4.1 round-trip requirement).
func (kp KeyPair) secp256k1Pair() (*secp256k1.PrivateKey, *secp256k1.PublicKey, error) {
	secretBytes, err := hex.DecodeString(kp.SecretHex)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKeyDecode, err)
	}
	sk := secp256k1.PrivKeyFromBytes(secretBytes)
	derived := sk.PubKey()

	pubBytes, err := hex.DecodeString(kp.PublicHex)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKeyDecode, err)
	}
	var stored *secp256k1.PublicKey
	switch len(pubBytes) {
	case 33:
		stored, err = secp256k1.ParsePubKey(pubBytes)
	case 65:
		stored, err = secp256k1.ParsePubKey(pubBytes)
	default:
		return nil, nil, fmt.Errorf("%w: public key length %d", ErrKeyDecode, len(pubBytes))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKeyDecode, err)
	}
	if !stored.IsEqual(derived) {
		return nil, nil, ErrPublicKeyMismatch
	}
	return sk, derived, nil
}

// SignSecp256k1ES256K signs the sha256 digest of payload with ECDSA over
// secp256k1, returning the raw r||s 64-byte signature used by the
// detached-JWS VC signer (spec §4.6).
func (kp KeyPair) SignSecp256k1ES256K(payload []byte) ([]byte, error) {
	sk, _, err := kp.secp256k1Pair()
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(payload)
	r, s, err := ecdsa.Sign(rand.Reader, sk.ToECDSA(), hash[:])
	if err != nil {
		return nil, fmt.Errorf("keyring: sign: %w", err)
	}
	return serializeRS(r, s), nil
}

// VerifySecp256k1ES256K verifies a raw r||s signature against this pair's
// public key.
func (kp KeyPair) VerifySecp256k1ES256K(payload, signature []byte) error {
	_, pub, err := kp.secp256k1Pair()
	if err != nil {
		return err
	}
	return verifySecp256k1(pub, payload, signature)
}

func verifySecp256k1(pub *secp256k1.PublicKey, payload, signature []byte) error {
	if len(signature) != 64 {
		return ErrInvalidSignature
	}
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])
	hash := sha256.Sum256(payload)
	if !ecdsa.Verify(pub.ToECDSA(), hash[:], r, s) {
		return ErrInvalidSignature
	}
	return nil
}

func serializeRS(r, s *big.Int) []byte {
	out := make([]byte, 64)
	rb, sb := r.Bytes(), s.Bytes()
	copy(out[32-len(rb):32], rb)
	copy(out[64-len(sb):64], sb)
	return out
}

// Secp256k1PublicFromHex parses a 33- or 65-byte hex-encoded secp256k1
// public key, for verifying against a public key resolved from a DID
// document rather than a locally held KeyPair.
func Secp256k1PublicFromHex(h string) (*secp256k1.PublicKey, error) {
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDecode, err)
	}
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDecode, err)
	}
	return pub, nil
}

// VerifySecp256k1 verifies a raw r||s signature against an externally
// resolved public key (used by internal/vc when verifying a credential
// signed by another DID).
func VerifySecp256k1(pub *secp256k1.PublicKey, payload, signature []byte) error {
	return verifySecp256k1(pub, payload, signature)
}
