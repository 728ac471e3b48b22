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

package metrics

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/nodecross/nodex/internal/cose"
)

// envelopePayloadSize measures the CBOR-encoded size of the
// {token, inner:[items]} payload a cose.SignMessage(did, items) call
// would sign, without actually signing it -- used by greedyPack to
// decide whether an item still fits under the budget.
func envelopePayloadSize(did string, items []TimestampedMetric) (int, error) {
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return 0, fmt.Errorf("metrics: build encoder: %w", err)
	}
	envelope := cose.Envelope{Token: cose.Token{DID: did}, Inner: items}
	b, err := enc.Marshal(envelope)
	if err != nil {
		return 0, fmt.Errorf("metrics: measure payload: %w", err)
	}
	return len(b), nil
}

// greedyPack packs items front-to-back into batches whose envelope
// payload stays at or under maxPayload, in order, per spec §4.9 and
// scenario S5. A single item that alone exceeds the budget fails the
// entire pack (the whole send cycle, not just that item).
func greedyPack(did string, items []TimestampedMetric, maxPayload int) ([][]TimestampedMetric, error) {
	if len(items) == 0 {
		return nil, nil
	}
	var batches [][]TimestampedMetric
	var current []TimestampedMetric
	for _, item := range items {
		candidate := append(append([]TimestampedMetric{}, current...), item)
		size, err := envelopePayloadSize(did, candidate)
		if err != nil {
			return nil, err
		}
		if size <= maxPayload {
			current = candidate
			continue
		}
		if len(current) == 0 {
			singleSize, sizeErr := envelopePayloadSize(did, []TimestampedMetric{item})
			if sizeErr != nil {
				return nil, sizeErr
			}
			return nil, fmt.Errorf("%w: %d bytes > %d budget", ErrItemTooLarge, singleSize, maxPayload)
		}
		batches = append(batches, current)
		current = []TimestampedMetric{item}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches, nil
}
