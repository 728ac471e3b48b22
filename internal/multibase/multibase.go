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

// Package multibase wraps go-multibase/go-multihash for the two encodings
// the webvh and Sidetree methods need: base58btc multihash (sha2-256) for
// SCIDs and entry hashes, and base58btc multibase ('z' prefix) for
// Ed25519 public keys referenced from did:key verification methods.
package multibase

import (
	"crypto/sha256"
	"fmt"

	gomultibase "github.com/multiformats/go-multibase"
	gomultihash "github.com/multiformats/go-multihash"
	"github.com/mr-tron/base58"
)

// MultihashSHA256 returns the base58btc-encoded sha2-256 multihash of data,
// e.g. "Qm...". Used for SCID and DID log entry hash computation.
func MultihashSHA256(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	mh, err := gomultihash.Encode(sum[:], gomultihash.SHA2_256)
	if err != nil {
		return "", fmt.Errorf("multibase: encode multihash: %w", err)
	}
	return base58.Encode(mh), nil
}

// EncodeEd25519 multibase-encodes an Ed25519 public key with the
// multicodec ed25519-pub prefix (0xed01), producing a "z6Mk..."-style
// string suitable for did:key and update_keys/next_key_hashes entries.
func EncodeEd25519(pub []byte) (string, error) {
	prefixed := append([]byte{0xed, 0x01}, pub...)
	s, err := gomultibase.Encode(gomultibase.Base58BTC, prefixed)
	if err != nil {
		return "", fmt.Errorf("multibase: encode ed25519: %w", err)
	}
	return s, nil
}

// DecodeEd25519 reverses EncodeEd25519, returning the raw 32-byte public key.
func DecodeEd25519(s string) ([]byte, error) {
	_, data, err := gomultibase.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("multibase: decode: %w", err)
	}
	if len(data) != 34 || data[0] != 0xed || data[1] != 0x01 {
		return nil, fmt.Errorf("multibase: not an ed25519-pub multicodec value")
	}
	return data[2:], nil
}

// MultihashOf computes the base58btc multihash string of an already
// multibase-encoded key, used when comparing next_key_hashes entries.
func MultihashOf(multibaseKey string) (string, error) {
	return MultihashSHA256([]byte(multibaseKey))
}
