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
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"

	"github.com/nodecross/nodex/internal/jcs"
	"github.com/nodecross/nodex/internal/keyring"
	"github.com/nodecross/nodex/internal/vc"
	"github.com/nodecross/nodex/internal/webvh/domain"
)

// DocumentResolver resolves a DID to its current document, implemented by
// internal/webvh/resolver.ResolveDocument in production and by a fake in
// tests (spec §9's "Resolver" capability trait).
type DocumentResolver interface {
	Resolve(ctx context.Context, did string) (*domain.DidDocument, error)
}

// Service holds the DID resolver and the optional attachment link used by
// spec §4.7's generate/verify pair; the DIDs and keyrings involved are
// passed to each call.
type Service struct {
	Resolver      DocumentResolver
	AttachmentURL string // NODEX_DID_ATTACHMENT_LINK, optional
}

// Generate builds and encrypts a DIDComm message carrying vcModel signed
// by fromKeyring, addressed to toDid, with an optional metadata
// attachment (spec §4.7 steps 1-5).
func (s *Service) Generate(ctx context.Context, vcModel vc.VerifiableCredential, fromDid string, fromKeyring *keyring.Keyring, toDid string, metadata any) (*Message, error) {
	signed, err := vc.Sign(vcModel, vc.SignParams{DID: fromDid, KeyID: "signingKey", SigningKey: fromKeyring.Sign})
	if err != nil {
		return nil, fmt.Errorf("didcomm: sign body: %w", err)
	}
	bodyCanonical, err := jcs.Canonicalize(signed)
	if err != nil {
		return nil, fmt.Errorf("didcomm: canonicalize body: %w", err)
	}

	toDoc, err := s.Resolver.Resolve(ctx, toDid)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDidDocNotFound, toDid, err)
	}
	toEncryptJWK, err := extractJWK(toDoc, "encryptionKey")
	if err != nil {
		return nil, err
	}
	toPub, err := jwkToX25519(toEncryptJWK)
	if err != nil {
		return nil, err
	}

	plaintext := plaintextEnvelope{From: fromDid, To: []string{toDid}, Body: string(bodyCanonical)}
	plaintextBytes, err := json.Marshal(plaintext)
	if err != nil {
		return nil, fmt.Errorf("didcomm: marshal plaintext: %w", err)
	}

	ephSecret, ephPublic, err := generateEphemeral()
	if err != nil {
		return nil, err
	}
	senderSecret, _, err := fromKeyring.Encrypt.X25519Raw()
	if err != nil {
		return nil, fmt.Errorf("didcomm: sender encrypt key: %w", err)
	}
	ze, err := ecdh(ephSecret, toPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptFailed, err)
	}
	zs, err := ecdh(senderSecret, toPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptFailed, err)
	}
	apu := []byte(fromDid)
	apv := []byte(toDid)
	key, err := deriveContentKey(ze, zs, apu, apv)
	if err != nil {
		return nil, err
	}

	epkJWK := keyring.JWK{Kty: "OKP", Crv: "X25519", X: base64.RawURLEncoding.EncodeToString(ephPublic)}
	header := protectedHeader{
		Alg:  algECDH1PU,
		Enc:  encXC20P,
		Epk:  epkJWK,
		Skid: fromDid + "#encryptionKey",
		Apu:  base64.RawURLEncoding.EncodeToString(apu),
		Apv:  base64.RawURLEncoding.EncodeToString(apv),
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("didcomm: marshal header: %w", err)
	}
	protected := base64.RawURLEncoding.EncodeToString(headerJSON)

	iv, ciphertext, tag, err := sealXC20P(key, plaintextBytes, []byte(protected))
	if err != nil {
		return nil, err
	}

	msg := &Message{
		Protected:  protected,
		Recipients: []Recipient{{Header: RecipientHeader{Kid: toDid + "#encryptionKey"}}},
		IV:         base64.RawURLEncoding.EncodeToString(iv),
		Ciphertext: base64.RawURLEncoding.EncodeToString(ciphertext),
		Tag:        base64.RawURLEncoding.EncodeToString(tag),
	}
	if metadata != nil {
		metaCanonical, err := jcs.Canonicalize(metadata)
		if err != nil {
			return nil, fmt.Errorf("didcomm: canonicalize metadata: %w", err)
		}
		data := AttachmentData{JSON: string(metaCanonical)}
		if s.AttachmentURL != "" {
			data.Link = s.AttachmentURL
		}
		msg.Attachments = []Attachment{{ID: uuid.NewString(), Format: "metadata", Data: data}}
	}
	return msg, nil
}

// VerifyResult is the output of Verify.
type VerifyResult struct {
	Message  vc.VerifiableCredential
	Metadata json.RawMessage
}

// Verify decrypts message with myKeyring, locating the sender DID from
// the protected header's skid (spec §4.7 step 1), then verifies the
// inner VC's signature against the sender's resolved signing key.
func (s *Service) Verify(ctx context.Context, myKeyring *keyring.Keyring, message *Message) (*VerifyResult, error) {
	headerJSON, err := base64.RawURLEncoding.DecodeString(message.Protected)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed protected header: %v", ErrDecryptFailed, err)
	}
	var header protectedHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("%w: malformed protected header: %v", ErrDecryptFailed, err)
	}
	fromDid, err := senderDidFromSkid(header.Skid)
	if err != nil {
		return nil, err
	}

	fromDoc, err := s.Resolver.Resolve(ctx, fromDid)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDidDocNotFound, fromDid, err)
	}
	fromEncryptJWK, err := extractJWK(fromDoc, "encryptionKey")
	if err != nil {
		return nil, err
	}
	senderStaticPub, err := jwkToX25519(fromEncryptJWK)
	if err != nil {
		return nil, err
	}
	ephPub, err := jwkToX25519(&header.Epk)
	if err != nil {
		return nil, err
	}

	mySecret, _, err := myKeyring.Encrypt.X25519Raw()
	if err != nil {
		return nil, fmt.Errorf("didcomm: recipient encrypt key: %w", err)
	}
	ze, err := ecdh(mySecret, ephPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	zs, err := ecdh(mySecret, senderStaticPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	apu, _ := base64.RawURLEncoding.DecodeString(header.Apu)
	apv, _ := base64.RawURLEncoding.DecodeString(header.Apv)
	key, err := deriveContentKey(ze, zs, apu, apv)
	if err != nil {
		return nil, err
	}

	iv, err := base64.RawURLEncoding.DecodeString(message.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed iv", ErrDecryptFailed)
	}
	ciphertext, err := base64.RawURLEncoding.DecodeString(message.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed ciphertext", ErrDecryptFailed)
	}
	tag, err := base64.RawURLEncoding.DecodeString(message.Tag)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed tag", ErrDecryptFailed)
	}
	plaintextBytes, err := openXC20P(key, iv, ciphertext, tag, []byte(message.Protected))
	if err != nil {
		return nil, err
	}

	var plaintext plaintextEnvelope
	if err := json.Unmarshal(plaintextBytes, &plaintext); err != nil {
		return nil, fmt.Errorf("%w: malformed plaintext: %v", ErrDecryptFailed, err)
	}

	var signed vc.VerifiableCredential
	if err := json.Unmarshal([]byte(plaintext.Body), &signed); err != nil {
		return nil, fmt.Errorf("didcomm: unmarshal vc body: %w", err)
	}
	fromSignJWK, err := extractJWK(fromDoc, "signingKey")
	if err != nil {
		return nil, err
	}
	signerPub, err := jwkToSecp256k1(fromSignJWK)
	if err != nil {
		return nil, err
	}
	if err := vc.Verify(&signed, signerPub); err != nil {
		return nil, fmt.Errorf("didcomm vc-verify: %w", err)
	}

	result := &VerifyResult{Message: signed}
	if len(message.Attachments) > 0 {
		for _, a := range message.Attachments {
			if a.Format == "metadata" {
				result.Metadata = json.RawMessage(a.Data.JSON)
				break
			}
		}
	}
	return result, nil
}

func senderDidFromSkid(skid string) (string, error) {
	const suffix = "#encryptionKey"
	if len(skid) <= len(suffix) || skid[len(skid)-len(suffix):] != suffix {
		return "", fmt.Errorf("%w: malformed skid %q", ErrDecryptFailed, skid)
	}
	return skid[:len(skid)-len(suffix)], nil
}

func extractJWK(doc *domain.DidDocument, fragment string) (*keyring.JWK, error) {
	suffix := "#" + fragment
	for _, vm := range doc.VerificationMethod {
		if len(vm.ID) >= len(suffix) && vm.ID[len(vm.ID)-len(suffix):] == suffix {
			raw, err := json.Marshal(vm.PublicKeyJwk)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrDidPublicKeyNotFound, err)
			}
			var jwk keyring.JWK
			if err := json.Unmarshal(raw, &jwk); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrDidPublicKeyNotFound, err)
			}
			return &jwk, nil
		}
	}
	return nil, fmt.Errorf("%w: %s on %s", ErrDidPublicKeyNotFound, fragment, doc.ID)
}

func jwkToX25519(jwk *keyring.JWK) ([]byte, error) {
	kp, err := keyring.FromJWK(jwk)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDidPublicKeyNotFound, err)
	}
	pub, err := hex.DecodeString(kp.PublicHex)
	if err != nil || len(pub) != 32 {
		return nil, fmt.Errorf("%w: malformed x25519 key", ErrDidPublicKeyNotFound)
	}
	return pub, nil
}

func jwkToSecp256k1(jwk *keyring.JWK) (*secp256k1.PublicKey, error) {
	kp, err := keyring.FromJWK(jwk)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDidPublicKeyNotFound, err)
	}
	pub, err := keyring.Secp256k1PublicFromHex(kp.PublicHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDidPublicKeyNotFound, err)
	}
	return pub, nil
}
