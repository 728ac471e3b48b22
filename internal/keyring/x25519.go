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
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// GenerateX25519 draws a fresh X25519 key pair, used for the device's
// encryption key (#encryptionKey) consumed by the DIDComm service.
func GenerateX25519() (KeyPair, error) {
	var secret [32]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return KeyPair{}, fmt.Errorf("keyring: generate x25519: %w", err)
	}
	pub, err := curve25519.X25519(secret[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, fmt.Errorf("keyring: x25519 basepoint mult: %w", err)
	}
	return KeyPair{
		Curve:     CurveX25519,
		SecretHex: hex.EncodeToString(secret[:]),
		PublicHex: hex.EncodeToString(pub),
	}, nil
}

// X25519Raw decodes and cross-checks the stored hex pair, returning the
// raw 32-byte secret and public scalars for use in ECDH key agreement.
func (kp KeyPair) X25519Raw() (secret, public []byte, err error) {
	secret, err = hex.DecodeString(kp.SecretHex)
	if err != nil || len(secret) != 32 {
		return nil, nil, fmt.Errorf("%w: secret key", ErrKeyDecode)
	}
	public, err = hex.DecodeString(kp.PublicHex)
	if err != nil || len(public) != 32 {
		return nil, nil, fmt.Errorf("%w: public key", ErrKeyDecode)
	}
	derived, err := curve25519.X25519(secret, curve25519.Basepoint)
	if err != nil {
		return nil, nil, fmt.Errorf("keyring: x25519 derive: %w", err)
	}
	if hex.EncodeToString(derived) != hex.EncodeToString(public) {
		return nil, nil, ErrPublicKeyMismatch
	}
	return secret, public, nil
}

// ECDH performs X25519 Diffie-Hellman between this pair's secret and a
// peer's raw 32-byte public key, as used to derive the DIDComm content
// encryption key.
func (kp KeyPair) ECDH(peerPublic []byte) ([]byte, error) {
	secret, _, err := kp.X25519Raw()
	if err != nil {
		return nil, err
	}
	shared, err := curve25519.X25519(secret, peerPublic)
	if err != nil {
		return nil, fmt.Errorf("keyring: ecdh: %w", err)
	}
	return shared, nil
}
