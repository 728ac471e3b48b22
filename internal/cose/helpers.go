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
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/nodecross/nodex/internal/keyring"
	"github.com/nodecross/nodex/internal/webvh/domain"
)

func jwkFromVerificationMethod(vm *domain.VerificationMethod) (*keyring.JWK, error) {
	raw, err := json.Marshal(vm.PublicKeyJwk)
	if err != nil {
		return nil, fmt.Errorf("cose: marshal verification method key: %w", err)
	}
	var jwk keyring.JWK
	if err := json.Unmarshal(raw, &jwk); err != nil {
		return nil, fmt.Errorf("cose: decode verification method key: %w", err)
	}
	return &jwk, nil
}

func hexDecode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
