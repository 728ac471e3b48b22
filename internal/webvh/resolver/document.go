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

package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nodecross/nodex/internal/webvh/domain"
)

// ErrDocumentNotFound is returned by ResolveDocument when the DID's log
// does not exist at its resolver URL (spec §4.7's DidDocNotFound).
var ErrDocumentNotFound = errors.New("webvh resolver: document not found")

// ResolveDocument is the single entry point DIDComm (C8) and the CBOR
// envelope verifier (C9) use to turn a did:webvh DID into its current
// document: parse the identifier, fetch the JSON-lines log over HTTP,
// and replay it deterministically (spec §4.5's two-layer
// transport/algorithm split, carried from
// original_source's ResolveIdentifierError/DidWebvhResolverError
// distinction per SPEC_FULL §4.5).
func ResolveDocument(ctx context.Context, client *http.Client, did string) (*domain.DidDocument, error) {
	id, err := domain.ParseIdentifier(did)
	if err != nil {
		return nil, fmt.Errorf("webvh resolver: %w", err)
	}
	url, err := id.ResolverURL()
	if err != nil {
		return nil, fmt.Errorf("webvh resolver: %w", err)
	}
	entries, err := fetchLogCtx(ctx, client, url)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		return nil, ErrDocumentNotFound
	}
	doc, err := VerifyEntries(entries)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func fetchLogCtx(ctx context.Context, client *http.Client, url string) ([]domain.LogEntry, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("webvh resolver: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webvh resolver: transport: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("webvh resolver: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("webvh resolver: read body: %w", err)
	}
	return ParseJSONL(body)
}

// LookupVerificationMethod finds a verification method in doc by its
// fragment (e.g. "encryptionKey" for "<did>#encryptionKey").
func LookupVerificationMethod(doc *domain.DidDocument, fragment string) (*domain.VerificationMethod, error) {
	suffix := "#" + fragment
	for i := range doc.VerificationMethod {
		vm := &doc.VerificationMethod[i]
		if len(vm.ID) >= len(suffix) && vm.ID[len(vm.ID)-len(suffix):] == suffix {
			return vm, nil
		}
	}
	return nil, fmt.Errorf("webvh resolver: public key %q not found on %s", fragment, doc.ID)
}
