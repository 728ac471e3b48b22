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

// Package didcomm implements the DIDComm encrypted service (C8): signed
// Verifiable Credential bodies encrypted to a recipient over X25519, with
// an optional metadata attachment. Grounded on
// original_source/protocol/src/didcomm/encrypted.rs for the
// generate/verify flow and error taxonomy, and on the teacher's
// session/session.go for the HKDF-derived AEAD key-agreement shape
// (golang.org/x/crypto/chacha20poly1305 + hkdf).
package didcomm

import (
	"errors"

	"github.com/nodecross/nodex/internal/keyring"
)

// Error taxonomy, spec §4.7.
var (
	ErrDidDocNotFound       = errors.New("didcomm: did document not found")
	ErrDidPublicKeyNotFound = errors.New("didcomm: public key not found on did document")
	ErrEncryptFailed        = errors.New("didcomm: encrypt failed")
	ErrDecryptFailed        = errors.New("didcomm: decrypt failed")
	ErrMetadataBodyNotFound = errors.New("didcomm: metadata attachment not found")
)

const (
	algECDH1PU = "ECDH-1PU"
	encXC20P   = "XC20P"
)

// protectedHeader is the JWE protected header: the ephemeral public key
// for ECDH-1PU key agreement, the sender's static key id (skid, used to
// locate the sender DID per spec §4.7 step 1), and the agreement
// PartyUInfo/PartyVInfo (the from/to DIDs).
type protectedHeader struct {
	Alg  string      `json:"alg"`
	Enc  string      `json:"enc"`
	Epk  keyring.JWK `json:"epk"`
	Skid string      `json:"skid"`
	Apu  string      `json:"apu,omitempty"`
	Apv  string      `json:"apv,omitempty"`
}

// RecipientHeader names the recipient's encryption key.
type RecipientHeader struct {
	Kid string `json:"kid"`
}

// Recipient is one entry of the JWE "recipients" array. This service
// always has exactly one recipient and uses direct key agreement (no
// per-recipient key wrap), so EncryptedKey is always empty.
type Recipient struct {
	Header       RecipientHeader `json:"header"`
	EncryptedKey string          `json:"encrypted_key"`
}

// Attachment is a single DIDComm attachment, used here only for the
// optional metadata payload (spec §4.7 step 4).
type Attachment struct {
	ID     string         `json:"id"`
	Format string         `json:"format"`
	Data   AttachmentData `json:"data"`
}

// AttachmentData carries the JCS-canonicalized metadata JSON and an
// optional link to the configured attachment URL.
type AttachmentData struct {
	JSON string `json:"json"`
	Link string `json:"link,omitempty"`
}

// Message is the JWE envelope: XC20P content encryption, ECDH-1PU key
// agreement on X25519 (spec §3).
type Message struct {
	Protected   string       `json:"protected"`
	Recipients  []Recipient  `json:"recipients"`
	IV          string       `json:"iv"`
	Ciphertext  string       `json:"ciphertext"`
	Tag         string       `json:"tag"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// plaintextEnvelope is the inner plaintext: from/to DIDs and the
// JCS-canonicalized signed VC body (spec §4.7 step 3).
type plaintextEnvelope struct {
	From string   `json:"from"`
	To   []string `json:"to"`
	Body string   `json:"body"`
}
