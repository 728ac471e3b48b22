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

// StoredKeyPairs is the on-disk shape of the six scoped key pairs, field
// names matching the "key_pairs" section of the config file (spec §6).
type StoredKeyPairs struct {
	Sign          *KeyPair `json:"sign,omitempty"`
	Update        *KeyPair `json:"update,omitempty"`
	NextKey       *KeyPair `json:"next_key,omitempty"` // recovery key
	Encrypt       *KeyPair `json:"encrypt,omitempty"`
	WebvhUpdate   *KeyPair `json:"didwebvh_update,omitempty"`
	WebvhRecovery *KeyPair `json:"didwebvh_recovery,omitempty"`
}

// Create draws six fresh key pairs from a cryptographically secure
// source (crypto/rand, via each curve's own generator).
func Create() (*Keyring, error) {
	sign, err := GenerateSecp256k1()
	if err != nil {
		return nil, err
	}
	update, err := GenerateSecp256k1()
	if err != nil {
		return nil, err
	}
	recovery, err := GenerateSecp256k1()
	if err != nil {
		return nil, err
	}
	encrypt, err := GenerateX25519()
	if err != nil {
		return nil, err
	}
	webvhUpdate, err := GenerateEd25519()
	if err != nil {
		return nil, err
	}
	webvhRecovery, err := GenerateEd25519()
	if err != nil {
		return nil, err
	}
	return &Keyring{
		Sign:          sign,
		Encrypt:       encrypt,
		Update:        update,
		Recovery:      recovery,
		WebvhUpdate:   webvhUpdate,
		WebvhRecovery: webvhRecovery,
	}, nil
}

// Load re-materializes a keyring from its stored representation,
// recomputing and cross-checking every public key. Per spec §4.1, this
// returns ErrIncompleteKeyring rather than a partial keyring if any pair
// is missing or fails its cross-check.
func Load(stored StoredKeyPairs) (*Keyring, error) {
	if stored.Sign == nil || stored.Update == nil || stored.NextKey == nil ||
		stored.Encrypt == nil || stored.WebvhUpdate == nil || stored.WebvhRecovery == nil {
		return nil, ErrIncompleteKeyring
	}
	kr := &Keyring{
		Sign:          *stored.Sign,
		Update:        *stored.Update,
		Recovery:      *stored.NextKey,
		Encrypt:       *stored.Encrypt,
		WebvhUpdate:   *stored.WebvhUpdate,
		WebvhRecovery: *stored.WebvhRecovery,
	}
	kr.Sign.Curve, kr.Update.Curve, kr.Recovery.Curve = CurveSecp256k1, CurveSecp256k1, CurveSecp256k1
	kr.Encrypt.Curve = CurveX25519
	kr.WebvhUpdate.Curve, kr.WebvhRecovery.Curve = CurveEd25519, CurveEd25519

	if _, _, err := kr.Sign.secp256k1Pair(); err != nil {
		return nil, wrapIncomplete(err)
	}
	if _, _, err := kr.Update.secp256k1Pair(); err != nil {
		return nil, wrapIncomplete(err)
	}
	if _, _, err := kr.Recovery.secp256k1Pair(); err != nil {
		return nil, wrapIncomplete(err)
	}
	if _, _, err := kr.Encrypt.X25519Raw(); err != nil {
		return nil, wrapIncomplete(err)
	}
	if _, _, err := kr.WebvhUpdate.Ed25519Pair(); err != nil {
		return nil, wrapIncomplete(err)
	}
	if _, _, err := kr.WebvhRecovery.Ed25519Pair(); err != nil {
		return nil, wrapIncomplete(err)
	}
	return kr, nil
}

func wrapIncomplete(err error) error {
	return &incompleteError{cause: err}
}

type incompleteError struct{ cause error }

func (e *incompleteError) Error() string { return ErrIncompleteKeyring.Error() + ": " + e.cause.Error() }
func (e *incompleteError) Unwrap() error { return ErrIncompleteKeyring }

// ToStored converts a Keyring into its persisted representation, for
// atomic replacement within a single config-file write.
func (kr *Keyring) ToStored() StoredKeyPairs {
	return StoredKeyPairs{
		Sign:          &kr.Sign,
		Update:        &kr.Update,
		NextKey:       &kr.Recovery,
		Encrypt:       &kr.Encrypt,
		WebvhUpdate:   &kr.WebvhUpdate,
		WebvhRecovery: &kr.WebvhRecovery,
	}
}
