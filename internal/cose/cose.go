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

package cose

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/nodecross/nodex/internal/keyring"
	"github.com/nodecross/nodex/internal/webvh/domain"
	"github.com/nodecross/nodex/internal/webvh/resolver"
)

// DocumentResolver resolves a DID to its current document, mirroring
// internal/didcomm's capability-trait split: production code goes
// through HTTPResolver, tests fake it directly (spec §9).
type DocumentResolver interface {
	Resolve(ctx context.Context, did string) (*domain.DidDocument, error)
}

// HTTPResolver adapts internal/webvh/resolver.ResolveDocument to
// DocumentResolver using the given *http.Client (nil selects
// http.DefaultClient).
type HTTPResolver struct {
	Client *http.Client
}

func (r HTTPResolver) Resolve(ctx context.Context, did string) (*domain.DidDocument, error) {
	return resolver.ResolveDocument(ctx, r.Client, did)
}

// tokenWindow is the bearer token's validity window, issued fresh on
// every SignMessage call (spec §3).
const tokenWindow = time.Hour

// nowFunc is overridden in tests to pin the expiry boundary (mirrors the
// webvh resolver's own nowFunc pattern).
var nowFunc = time.Now

// protectedHeaderBytes returns the fixed COSE protected header {1: EdDSA},
// canonically CBOR-encoded on each call: the algorithm never varies, so
// there is nothing to parameterize.
func protectedHeaderBytes() ([]byte, error) {
	header := map[interface{}]interface{}{headerLabelAlg: algEdDSA}
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cose: build encoder: %w", err)
	}
	return enc.Marshal(header)
}

// sigStructure builds the canonical Sig_structure for COSE_Sign1 (RFC
// 9052 §4.4): ["Signature1", protected, external_aad, payload]. The
// signing context string is fixed and external_aad is always empty
// (spec §9's explicit note that this is not the raw outer envelope).
func sigStructure(protected, payload []byte) ([]byte, error) {
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cose: build encoder: %w", err)
	}
	structure := []interface{}{"Signature1", protected, []byte{}, payload}
	return enc.Marshal(structure)
}

// SignMessage wraps inner in an Envelope{Token{did, exp}, inner}, CBOR
// encodes it, and produces a COSE_Sign1 envelope signed with
// signingKey's Ed25519 key (spec §4.8 "sign_message").
func SignMessage(signingKey keyring.KeyPair, did string, inner any) ([]byte, error) {
	envelope := Envelope{
		Token: Token{DID: did, Exp: nowFunc().Add(tokenWindow).Unix()},
		Inner: inner,
	}
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cose: build encoder: %w", err)
	}
	payload, err := enc.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCBORDecode, err)
	}

	protected, err := protectedHeaderBytes()
	if err != nil {
		return nil, err
	}
	toSign, err := sigStructure(protected, payload)
	if err != nil {
		return nil, err
	}
	signature, err := signingKey.SignEdDSA(toSign)
	if err != nil {
		return nil, fmt.Errorf("cose: sign: %w", err)
	}

	msg := sign1Message{
		Protected:   protected,
		Unprotected: map[interface{}]interface{}{},
		Payload:     payload,
		Signature:   signature,
	}
	out, err := enc.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCOSEDecode, err)
	}
	return out, nil
}

// VerifyMessage decodes a COSE_Sign1 envelope produced by SignMessage,
// rejects it if its token has expired, resolves the token's DID via
// resolver, verifies the signature against its "#signTimeSeriesKey"
// Ed25519 verification method, and unmarshals inner into out (spec
// §4.8 "verify_message", invariant 8's expiry boundary).
func VerifyMessage(ctx context.Context, docResolver DocumentResolver, data []byte, out any) error {
	var msg sign1Message
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrCOSEDecode, err)
	}

	var envelope struct {
		Token Token           `cbor:"token"`
		Inner cbor.RawMessage `cbor:"inner"`
	}
	if err := cbor.Unmarshal(msg.Payload, &envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrCBORDecode, err)
	}
	if nowFunc().Unix() > envelope.Token.Exp {
		return ErrTokenExpired
	}

	doc, err := docResolver.Resolve(ctx, envelope.Token.DID)
	if err != nil {
		return fmt.Errorf("cose: resolve signer: %w", err)
	}
	vm, err := resolver.LookupVerificationMethod(doc, "signTimeSeriesKey")
	if err != nil {
		return fmt.Errorf("cose: %w", err)
	}
	jwk, err := jwkFromVerificationMethod(vm)
	if err != nil {
		return err
	}
	kp, err := keyring.FromJWK(jwk)
	if err != nil {
		return fmt.Errorf("cose: decode signer key: %w", err)
	}
	pub, err := hexDecode(kp.PublicHex)
	if err != nil {
		return fmt.Errorf("cose: decode signer key: %w", err)
	}

	toVerify, err := sigStructure(msg.Protected, msg.Payload)
	if err != nil {
		return err
	}
	if err := keyring.VerifyEdDSA(pub, toVerify, msg.Signature); err != nil {
		return ErrSignatureMismatch
	}

	if out != nil {
		if err := cbor.Unmarshal(envelope.Inner, out); err != nil {
			return fmt.Errorf("%w: %v", ErrCBORDecode, err)
		}
	}
	return nil
}
