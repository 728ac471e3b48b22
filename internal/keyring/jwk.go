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

// JWK codec (C2): lossless mapping between in-memory KeyPairs and the
// JSON Web Key shape spec §4.1 requires, adapted from the teacher's
// crypto/formats/jwk.go Export/Import pair and ComputeKeyIDRFC9421
// thumbprint helper.
package keyring

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// JWK is the canonical JSON Web Key shape used in DID documents and
// COSE/JWS payloads. Base64 fields are URL-safe, unpadded.
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
	D   string `json:"d,omitempty"`
}

var b64 = base64.RawURLEncoding

// ToJWK encodes a KeyPair's public (and, if includePrivate, secret)
// material as a JWK. secp256k1 keys require the y-coordinate; its
// omission on decode is an error (spec §4.1).
func (kp KeyPair) ToJWK(includePrivate bool) (*JWK, error) {
	switch kp.Curve {
	case CurveSecp256k1:
		_, pub, err := kp.secp256k1Pair()
		if err != nil {
			return nil, err
		}
		fieldX := pub.X().Bytes()
		fieldY := pub.Y().Bytes()
		jwk := &JWK{Kty: "EC", Crv: "secp256k1", X: b64.EncodeToString(pad32(fieldX)), Y: b64.EncodeToString(pad32(fieldY))}
		if includePrivate {
			sec, err := hex.DecodeString(kp.SecretHex)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrKeyDecode, err)
			}
			jwk.D = b64.EncodeToString(sec)
		}
		return jwk, nil
	case CurveX25519:
		_, pub, err := kp.X25519Raw()
		if err != nil {
			return nil, err
		}
		jwk := &JWK{Kty: "OKP", Crv: "X25519", X: b64.EncodeToString(pub)}
		if includePrivate {
			sec, _, _ := kp.X25519Raw()
			jwk.D = b64.EncodeToString(sec)
		}
		return jwk, nil
	case CurveEd25519:
		_, pub, err := kp.Ed25519Pair()
		if err != nil {
			return nil, err
		}
		jwk := &JWK{Kty: "OKP", Crv: "Ed25519", X: b64.EncodeToString(pub)}
		if includePrivate {
			priv, _, _ := kp.Ed25519Pair()
			jwk.D = b64.EncodeToString(priv.Seed())
		}
		return jwk, nil
	default:
		return nil, fmt.Errorf("keyring: unsupported curve %q for JWK export", kp.Curve)
	}
}

func pad32(b []byte) []byte {
	if len(b) >= 32 {
		return b
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// FromJWK decodes a JWK back into a public-only KeyPair. Returns
// ErrKeyDecode if the y-coordinate is missing on a secp256k1 JWK.
func FromJWK(jwk *JWK) (KeyPair, error) {
	switch {
	case jwk.Kty == "EC" && jwk.Crv == "secp256k1":
		if jwk.Y == "" {
			return KeyPair{}, fmt.Errorf("%w: secp256k1 JWK missing y", ErrKeyDecode)
		}
		x, err := b64.DecodeString(jwk.X)
		if err != nil {
			return KeyPair{}, fmt.Errorf("%w: %v", ErrKeyDecode, err)
		}
		y, err := b64.DecodeString(jwk.Y)
		if err != nil {
			return KeyPair{}, fmt.Errorf("%w: %v", ErrKeyDecode, err)
		}
		uncompressed := append([]byte{0x04}, append(pad32(x), pad32(y)...)...)
		return KeyPair{Curve: CurveSecp256k1, PublicHex: hex.EncodeToString(uncompressed)}, nil
	case jwk.Kty == "OKP" && jwk.Crv == "X25519":
		x, err := b64.DecodeString(jwk.X)
		if err != nil {
			return KeyPair{}, fmt.Errorf("%w: %v", ErrKeyDecode, err)
		}
		return KeyPair{Curve: CurveX25519, PublicHex: hex.EncodeToString(x)}, nil
	case jwk.Kty == "OKP" && jwk.Crv == "Ed25519":
		x, err := b64.DecodeString(jwk.X)
		if err != nil {
			return KeyPair{}, fmt.Errorf("%w: %v", ErrKeyDecode, err)
		}
		return KeyPair{Curve: CurveEd25519, PublicHex: hex.EncodeToString(x)}, nil
	default:
		return KeyPair{}, fmt.Errorf("keyring: unsupported JWK kty/crv %q/%q", jwk.Kty, jwk.Crv)
	}
}

// Thumbprint computes the RFC 7638/9421 JWK thumbprint: sorted canonical
// JSON of the required members, sha256, base64url (no padding).
func Thumbprint(jwk *JWK) (string, error) {
	members := map[string]string{"kty": jwk.Kty}
	switch jwk.Kty {
	case "EC":
		members["crv"] = jwk.Crv
		members["x"] = jwk.X
		members["y"] = jwk.Y
	case "OKP":
		members["crv"] = jwk.Crv
		members["x"] = jwk.X
	}
	raw, err := json.Marshal(members)
	if err != nil {
		return "", err
	}
	var sorted map[string]interface{}
	if err := json.Unmarshal(raw, &sorted); err != nil {
		return "", err
	}
	canonical, err := canonicalSortedJSON(sorted)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return b64.EncodeToString(sum[:]), nil
}

// canonicalSortedJSON re-serializes a flat string-keyed map with sorted
// keys and no insignificant whitespace, matching the thumbprint members
// ordering rule (all member names in lexicographic order: crv, kty, x, y).
func canonicalSortedJSON(m map[string]interface{}) ([]byte, error) {
	order := []string{"crv", "d", "kty", "x", "y"}
	var buf []byte
	buf = append(buf, '{')
	first := true
	for _, k := range order {
		v, ok := m[k]
		if !ok {
			continue
		}
		if !first {
			buf = append(buf, ',')
		}
		first = false
		key, _ := json.Marshal(k)
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	buf = append(buf, '}')
	return buf, nil
}
