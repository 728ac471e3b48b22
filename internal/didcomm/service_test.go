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
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nodecross/nodex/internal/keyring"
	"github.com/nodecross/nodex/internal/vc"
	"github.com/nodecross/nodex/internal/webvh/domain"
)

// fakeResolver maps a DID directly to a prebuilt document, standing in
// for internal/webvh/resolver.ResolveDocument in this package's unit
// tests (spec §9's Resolver capability trait, faked at the boundary).
type fakeResolver struct {
	docs map[string]*domain.DidDocument
}

func (f *fakeResolver) Resolve(_ context.Context, did string) (*domain.DidDocument, error) {
	doc, ok := f.docs[did]
	if !ok {
		return nil, ErrDidDocNotFound
	}
	return doc, nil
}

func documentFor(did string, kr *keyring.Keyring) (*domain.DidDocument, error) {
	signJWK, err := kr.Sign.ToJWK(false)
	if err != nil {
		return nil, err
	}
	encJWK, err := kr.Encrypt.ToJWK(false)
	if err != nil {
		return nil, err
	}
	return &domain.DidDocument{
		ID: did,
		VerificationMethod: []domain.VerificationMethod{
			{ID: did + "#signingKey", Controller: did, Type: "JsonWebKey2020", PublicKeyJwk: signJWK},
			{ID: did + "#encryptionKey", Controller: did, Type: "JsonWebKey2020", PublicKeyJwk: encJWK},
		},
	}, nil
}

func TestGenerateVerifyRoundTripWithMetadata(t *testing.T) {
	krA, err := keyring.Create()
	require.NoError(t, err)
	krB, err := keyring.Create()
	require.NoError(t, err)
	krC, err := keyring.Create()
	require.NoError(t, err)

	didA := "did:webvh:scidA:example.com:a"
	didB := "did:webvh:scidB:example.com:b"

	docA, err := documentFor(didA, krA)
	require.NoError(t, err)
	docB, err := documentFor(didB, krB)
	require.NoError(t, err)

	resolver := &fakeResolver{docs: map[string]*domain.DidDocument{didA: docA, didB: docB}}
	svc := &Service{Resolver: resolver}

	input := vc.VerifiableCredential{
		Type:         []string{"VerifiableCredential"},
		Issuer:       vc.Issuer{ID: didA},
		Context:      []string{"https://www.w3.org/2018/credentials/v1"},
		IssuanceDate: time.Now().UTC(),
		CredentialSubject: vc.CredentialSubject{
			Container: json.RawMessage(`{"test":"0123456789abcdef"}`),
		},
	}
	metadata := map[string]string{"tag": "demo"}

	msg, err := svc.Generate(context.Background(), input, didA, krA, didB, metadata)
	require.NoError(t, err)
	require.NotEmpty(t, msg.Attachments)

	result, err := svc.Verify(context.Background(), krB, msg)
	require.NoError(t, err)
	require.JSONEq(t, string(input.CredentialSubject.Container), string(result.Message.CredentialSubject.Container))
	require.NotNil(t, result.Metadata)
	require.JSONEq(t, `{"tag":"demo"}`, string(result.Metadata))

	_, err = svc.Verify(context.Background(), krC, msg)
	require.ErrorIs(t, err, ErrDecryptFailed)
}

func TestGenerateUnknownRecipientFails(t *testing.T) {
	krA, err := keyring.Create()
	require.NoError(t, err)
	resolver := &fakeResolver{docs: map[string]*domain.DidDocument{}}
	svc := &Service{Resolver: resolver}

	_, err = svc.Generate(context.Background(), vc.VerifiableCredential{
		Type:         []string{"VerifiableCredential"},
		Issuer:       vc.Issuer{ID: "did:webvh:scidA:example.com:a"},
		Context:      []string{"https://www.w3.org/2018/credentials/v1"},
		IssuanceDate: time.Now().UTC(),
		CredentialSubject: vc.CredentialSubject{
			Container: json.RawMessage(`{}`),
		},
	}, "did:webvh:scidA:example.com:a", krA, "did:webvh:scidB:example.com:missing", nil)
	require.ErrorIs(t, err, ErrDidDocNotFound)
}
