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

package didcomm

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// deriveContentKey implements the ECDH-1PU combined key-agreement step:
// Z = Ze || Zs where Ze is the ephemeral-static ECDH output and Zs is the
// static-static ECDH output, fed through HKDF-SHA256 with the encryption
// algorithm identifier and the apu/apv agreement info, producing the
// XC20P content-encryption key (spec §4.7). No ecosystem JOSE/JWE library
// in the pack supports ECDH-1PU, so the KDF is hand-rolled on
// golang.org/x/crypto/hkdf, matching the teacher's own session.go HKDF
// usage.
func deriveContentKey(ze, zs, apu, apv []byte) ([32]byte, error) {
	var key [32]byte
	ikm := append(append([]byte{}, ze...), zs...)
	info := buildKDFInfo(apu, apv)
	reader := hkdf.New(sha256.New, ikm, nil, info)
	if _, err := io.ReadFull(reader, key[:]); err != nil {
		return key, fmt.Errorf("didcomm: derive content key: %w", err)
	}
	return key, nil
}

func buildKDFInfo(apu, apv []byte) []byte {
	info := []byte(encXC20P)
	info = append(info, apu...)
	info = append(info, apv...)
	return info
}

// ecdh performs X25519 Diffie-Hellman between a raw 32-byte secret and a
// peer's raw 32-byte public key.
func ecdh(secret, peerPublic []byte) ([]byte, error) {
	shared, err := curve25519.X25519(secret, peerPublic)
	if err != nil {
		return nil, fmt.Errorf("didcomm: ecdh: %w", err)
	}
	return shared, nil
}

// generateEphemeral draws a fresh X25519 key pair for one-time use as the
// ECDH-1PU ephemeral key.
func generateEphemeral() (secret, public []byte, err error) {
	secret = make([]byte, 32)
	if _, err = rand.Read(secret); err != nil {
		return nil, nil, fmt.Errorf("didcomm: generate ephemeral: %w", err)
	}
	public, err = curve25519.X25519(secret, curve25519.Basepoint)
	if err != nil {
		return nil, nil, fmt.Errorf("didcomm: ephemeral basepoint mult: %w", err)
	}
	return secret, public, nil
}

// sealXC20P encrypts plaintext under key with a fresh random 24-byte
// nonce, returning the nonce, raw ciphertext, and detached 16-byte tag
// (spec §3 models iv/ciphertext/tag as separate fields).
func sealXC20P(key [32]byte, plaintext, aad []byte) (iv, ciphertext, tag []byte, err error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrEncryptFailed, err)
	}
	iv = make([]byte, aead.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrEncryptFailed, err)
	}
	sealed := aead.Seal(nil, iv, plaintext, aad)
	overhead := aead.Overhead()
	ciphertext = sealed[:len(sealed)-overhead]
	tag = sealed[len(sealed)-overhead:]
	return iv, ciphertext, tag, nil
}

// openXC20P reverses sealXC20P.
func openXC20P(key [32]byte, iv, ciphertext, tag, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	sealed := append(append([]byte{}, ciphertext...), tag...)
	plaintext, err := aead.Open(nil, iv, sealed, aad)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}
