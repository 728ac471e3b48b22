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

// Package resolver implements the did:webvh resolver and replay verifier
// (C6), the hardest subsystem per spec §4.5. VerifyEntries is grounded
// directly on
// original_source/protocol/src/did_webvh/service/resolver/resolver_service.rs's
// verify_proofs/verify_entries; FetchLog is the HTTP transport layer,
// kept separate so VerifyEntries stays a pure, deterministic function
// (spec §9's "two capability traits" redesign note, applied within C6).
package resolver

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	gomultibase "github.com/multiformats/go-multibase"

	"github.com/nodecross/nodex/internal/jcs"
	"github.com/nodecross/nodex/internal/keyring"
	"github.com/nodecross/nodex/internal/multibase"
	"github.com/nodecross/nodex/internal/webvh/domain"
)

// Error kinds from spec §7's "Log integrity (webvh)" taxonomy.
var (
	ErrEmptyLog              = errors.New("webvh resolver: empty log")
	ErrFutureTime            = errors.New("webvh resolver: version time in the future")
	ErrNonMonotonicTime      = errors.New("webvh resolver: version time did not advance")
	ErrNonSequentialVersion  = errors.New("webvh resolver: non-sequential version number")
	ErrEmptyUpdateKeys       = errors.New("webvh resolver: empty update keys")
	ErrAbsentProof           = errors.New("webvh resolver: no proof attached")
	ErrUnauthorizedKey       = errors.New("webvh resolver: verification method not authorized")
	ErrEntryHashMismatch     = errors.New("webvh resolver: entry hash mismatch")
	ErrPrerotationMismatch   = errors.New("webvh resolver: prerotation key set mismatch")
	ErrMalformedVerification = errors.New("webvh resolver: malformed proof verification method")
	ErrSignatureInvalid      = errors.New("webvh resolver: proof signature invalid")
)

// nowFunc is overridable in tests.
var nowFunc = time.Now

// VerifyEntries replays an ordered did:webvh log deterministically,
// returning the resulting document on full success. Returns (nil, nil)
// iff entries is empty, per spec §4.5 "Ok(None) iff the list is empty".
func VerifyEntries(entries []domain.LogEntry) (*domain.DidDocument, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	now := nowFunc().UTC()

	first := entries[0]
	n, _, err := first.ParseVersionID()
	if err != nil {
		return nil, err
	}
	if n != 1 {
		return nil, fmt.Errorf("%w: first entry must be version 1", ErrNonSequentialVersion)
	}
	firstTime, err := parseTime(first.VersionTime)
	if err != nil {
		return nil, err
	}
	if firstTime.After(now) {
		return nil, ErrFutureTime
	}
	if len(first.Parameters.UpdateKeys) == 0 {
		return nil, ErrEmptyUpdateKeys
	}
	authorized := first.Parameters.UpdateKeys

	if err := verifyAllProofs(first, authorized, now); err != nil {
		return nil, err
	}

	if err := verifyEntry1Hash(first); err != nil {
		return nil, err
	}

	prev := first
	prevTime := firstTime
	for _, current := range entries[1:] {
		n2, h2, err := current.ParseVersionID()
		if err != nil {
			return nil, err
		}
		prevN, _, _ := prev.ParseVersionID()
		if n2 != prevN+1 {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrNonSequentialVersion, prevN+1, n2)
		}
		t, err := parseTime(current.VersionTime)
		if err != nil {
			return nil, err
		}
		if t.After(now) {
			return nil, ErrFutureTime
		}
		if t.Before(prevTime) {
			return nil, ErrNonMonotonicTime
		}

		_, prevHash, _ := prev.ParseVersionID()
		tmp := current
		tmp.VersionID = prevHash
		tmp.Proof = nil
		canonical, err := jcs.Canonicalize(tmp)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
		}
		computedHash, err := multibase.MultihashSHA256(canonical)
		if err != nil {
			return nil, err
		}
		if computedHash != h2 {
			return nil, ErrEntryHashMismatch
		}

		if len(prev.Parameters.NextKeyHashes) > 0 {
			if len(current.Parameters.UpdateKeys) == 0 {
				return nil, ErrEmptyUpdateKeys
			}
			computed, err := domain.CalcNextKeyHashes(current.Parameters.UpdateKeys)
			if err != nil {
				return nil, err
			}
			if !sortedEqual(computed, prev.Parameters.NextKeyHashes) {
				return nil, ErrPrerotationMismatch
			}
			authorized = current.Parameters.UpdateKeys
		}

		if err := verifyAllProofs(current, authorized, now); err != nil {
			return nil, err
		}
		prev = current
		prevTime = t
	}

	state := prev.State
	return &state, nil
}

func verifyEntry1Hash(first domain.LogEntry) error {
	_, h, _ := first.ParseVersionID()
	placeholder, err := first.ReplaceToSCIDPlaceholder()
	if err != nil {
		return err
	}
	scidCalc, err := placeholder.CalcEntryHash()
	if err != nil {
		return err
	}
	restored, err := placeholder.WithSCID(scidCalc)
	if err != nil {
		return err
	}
	hashCalc, err := restored.CalcEntryHash()
	if err != nil {
		return err
	}
	if hashCalc != h {
		return ErrEntryHashMismatch
	}
	return nil
}

func verifyAllProofs(entry domain.LogEntry, authorized []string, now time.Time) error {
	if len(entry.Proof) == 0 {
		return ErrAbsentProof
	}
	stripped := entry
	stripped.Proof = nil
	canonical, err := jcs.Canonicalize(stripped)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
	}
	for _, proof := range entry.Proof {
		created, err := parseTime(proof.Created)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
		}
		if created.After(now) {
			return ErrFutureTime
		}
		mb, err := decomposeVerificationMethod(proof.VerificationMethod)
		if err != nil {
			return err
		}
		if !contains(authorized, mb) {
			return ErrUnauthorizedKey
		}
		pub, err := multibase.DecodeEd25519(mb)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedVerification, err)
		}
		sigBytes, err := decodeMultibaseSignature(proof.ProofValue)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
		}
		if err := keyring.VerifyEdDSA(pub, canonical, sigBytes); err != nil {
			return ErrSignatureInvalid
		}
	}
	return nil
}

// decomposeVerificationMethod extracts the multibase public key from
// "did:key:<mb>#<fragment>", taking only the part before '#' (spec §4.5;
// the fragment is not required to match, following the original's
// split('#').next() behavior).
func decomposeVerificationMethod(vm string) (string, error) {
	const prefix = "did:key:"
	head := strings.SplitN(vm, "#", 2)[0]
	if !strings.HasPrefix(head, prefix) {
		return "", ErrMalformedVerification
	}
	return strings.TrimPrefix(head, prefix), nil
}

func decodeMultibaseSignature(proofValue string) ([]byte, error) {
	_, data, err := gomultibase.Decode(proofValue)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func sortedEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	ac := append([]string(nil), a...)
	bc := append([]string(nil), b...)
	sort.Strings(ac)
	sort.Strings(bc)
	for i := range ac {
		if ac[i] != bc[i] {
			return false
		}
	}
	return true
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", domain.ErrInvalidVersionTime, err)
	}
	return t, nil
}

// FetchLog retrieves the JSON-lines did.jsonl body over HTTP and parses
// it into an ordered entry list (the "reference backend is HTTP" per
// spec's Non-goals).
func FetchLog(client *http.Client, url string) ([]domain.LogEntry, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Get(url)
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
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("webvh resolver: read body: %w", err)
	}
	return ParseJSONL(buf.Bytes())
}
