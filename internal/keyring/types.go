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

// Package keyring implements the device's six scoped key pairs (C1) and
// their lossless JWK encoding (C2), generalized from the teacher's
// crypto.KeyPair / crypto/formats.JWK pair.
package keyring

import "errors"

// Curve identifies the elliptic curve backing a KeyPair.
type Curve string

const (
	CurveSecp256k1 Curve = "secp256k1"
	CurveX25519    Curve = "x25519"
	CurveEd25519   Curve = "ed25519"
)

// KeyPair is a semantic (secret, public) pair parameterized by curve, with
// a canonical hex serialization. The public key must be the deterministic
// image of the secret key under the curve's generator; loaders recompute
// and cross-check this on every load.
type KeyPair struct {
	Curve     Curve  `json:"-"`
	SecretHex string `json:"secret_key"`
	PublicHex string `json:"public_key"`
}

// Keyring is the set of six key pairs owned by the device.
type Keyring struct {
	Sign          KeyPair // secp256k1, signing key
	Encrypt       KeyPair // x25519, encryption key
	Update        KeyPair // secp256k1, sidetree update key
	Recovery      KeyPair // secp256k1, sidetree recovery key
	WebvhUpdate   KeyPair // Ed25519, webvh update key
	WebvhRecovery KeyPair // Ed25519, webvh recovery key
}

var (
	// ErrIncompleteKeyring is returned by Load when any required key pair
	// is missing or malformed. Per spec §4.1 this is never a partial
	// result: either every pair loads, or the keyring is absent.
	ErrIncompleteKeyring = errors.New("keyring: incomplete or malformed")
	// ErrPublicKeyMismatch indicates the stored public key is not the
	// generator image of the stored secret key.
	ErrPublicKeyMismatch = errors.New("keyring: public key does not match secret key")
	// ErrInvalidSignature is returned by Verify on a signature mismatch.
	ErrInvalidSignature = errors.New("keyring: invalid signature")
	// ErrKeyDecode is returned when a hex or JWK payload cannot be decoded
	// into a valid point on the expected curve.
	ErrKeyDecode = errors.New("keyring: key decode failure")
)
