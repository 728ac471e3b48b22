// SPDX-License-Identifier: LGPL-3.0-or-later

package sidetree

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodecross/nodex/internal/jcs"
	"github.com/nodecross/nodex/internal/keyring"
)

func TestBuildCreateOperationShape(t *testing.T) {
	sign, err := keyring.GenerateSecp256k1()
	require.NoError(t, err)
	encrypt, err := keyring.GenerateX25519()
	require.NoError(t, err)
	update, err := keyring.GenerateSecp256k1()
	require.NoError(t, err)
	recovery, err := keyring.GenerateSecp256k1()
	require.NoError(t, err)

	op, err := BuildCreateOperation(sign, encrypt, update, recovery)
	require.NoError(t, err)
	require.Equal(t, "create", op.Type)
	require.NotEmpty(t, op.Delta)
	require.NotEmpty(t, op.SuffixData)

	deltaBytes, err := base64.RawURLEncoding.DecodeString(op.Delta)
	require.NoError(t, err)
	var delta Delta
	require.NoError(t, json.Unmarshal(deltaBytes, &delta))
	require.Len(t, delta.Patches, 1)
	require.Equal(t, "replace", delta.Patches[0].Action)
	require.Len(t, delta.Patches[0].Document.PublicKeys, 2)
	require.NotEmpty(t, delta.UpdateCommitment)

	suffixBytes, err := base64.RawURLEncoding.DecodeString(op.SuffixData)
	require.NoError(t, err)
	var suffix SuffixData
	require.NoError(t, json.Unmarshal(suffixBytes, &suffix))
	require.NotEmpty(t, suffix.DeltaHash)
	require.NotEmpty(t, suffix.RecoveryCommitment)

	// delta_hash is raw base64url(sha256(...)): 32 bytes -> 43 chars, no padding.
	require.Len(t, suffix.DeltaHash, 43)
}

func TestCommitmentDiffersFromSingleHash(t *testing.T) {
	kp, err := keyring.GenerateSecp256k1()
	require.NoError(t, err)

	commitment, err := commitmentOf(kp)
	require.NoError(t, err)

	jwk, err := kp.ToJWK(false)
	require.NoError(t, err)
	canonical, cerr := jcs.Canonicalize(jwk)
	require.NoError(t, cerr)
	oneHash := singleHash(canonical)

	require.NotEqual(t, commitment, oneHash)
}
