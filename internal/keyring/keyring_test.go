// SPDX-License-Identifier: LGPL-3.0-or-later

package keyring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateAndLoadRoundTrip(t *testing.T) {
	kr, err := Create()
	require.NoError(t, err)

	loaded, err := Load(kr.ToStored())
	require.NoError(t, err)
	require.Equal(t, kr.Sign.PublicHex, loaded.Sign.PublicHex)
	require.Equal(t, kr.Encrypt.PublicHex, loaded.Encrypt.PublicHex)
	require.Equal(t, kr.WebvhUpdate.PublicHex, loaded.WebvhUpdate.PublicHex)
}

func TestLoadRejectsIncompleteKeyring(t *testing.T) {
	kr, err := Create()
	require.NoError(t, err)
	stored := kr.ToStored()
	stored.Encrypt = nil

	_, err = Load(stored)
	require.ErrorIs(t, err, ErrIncompleteKeyring)
}

func TestSignVerifySecp256k1(t *testing.T) {
	kr, err := Create()
	require.NoError(t, err)

	payload := []byte("hello nodex")
	sig, err := kr.Sign.SignSecp256k1ES256K(payload)
	require.NoError(t, err)
	require.NoError(t, kr.Sign.VerifySecp256k1ES256K(payload, sig))

	other, err := Create()
	require.NoError(t, err)
	require.Error(t, other.Sign.VerifySecp256k1ES256K(payload, sig))
}

func TestJWKRoundTripSecp256k1(t *testing.T) {
	kr, err := Create()
	require.NoError(t, err)

	jwk, err := kr.Sign.ToJWK(false)
	require.NoError(t, err)
	require.Equal(t, "EC", jwk.Kty)
	require.NotEmpty(t, jwk.Y)

	decoded, err := FromJWK(jwk)
	require.NoError(t, err)
	require.Equal(t, kr.Sign.PublicHex, decoded.PublicHex)
}

func TestJWKDecodeMissingYIsError(t *testing.T) {
	jwk := &JWK{Kty: "EC", Crv: "secp256k1", X: "abcd"}
	_, err := FromJWK(jwk)
	require.ErrorIs(t, err, ErrKeyDecode)
}

func TestECDHAgreement(t *testing.T) {
	a, err := Create()
	require.NoError(t, err)
	b, err := Create()
	require.NoError(t, err)

	_, bPub, err := b.Encrypt.X25519Raw()
	require.NoError(t, err)
	_, aPub, err := a.Encrypt.X25519Raw()
	require.NoError(t, err)

	sharedA, err := a.Encrypt.ECDH(bPub)
	require.NoError(t, err)
	sharedB, err := b.Encrypt.ECDH(aPub)
	require.NoError(t, err)
	require.Equal(t, sharedA, sharedB)
}
