// SPDX-License-Identifier: LGPL-3.0-or-later

package resolver

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// threeEntryFixture reproduces the original implementation's three-entry
// did:webvh log fixture verbatim (did_log_entry.rs JSONL constant).
const threeEntryFixture = `{"versionId": "1-QmRD52wqs942kZ2gs7UU9QmaopvqnMziqB4qgFDYsapCT9", "versionTime": "2024-10-01T22:13:49Z", "parameters": {"updateKeys": ["z6Mkkr7iopdwZUgE87YaypKXSuBTsT6C7TyaUABmnHMuqmTY"], "nextKeyHashes": ["QmdEjpG2gwEWZAx8YjBrw7mF1iuCqgrMh8S63M7PaC1Ldr"], "method": "did:webvh:0.5", "scid": "QmaJp6pmb6RUk4oaDyWQcjeqYbvxsc3kvmHWPpz7B5JwDU"}, "state": {"@context": ["https://www.w3.org/ns/did/v1"], "id": "did:webvh:QmaJp6pmb6RUk4oaDyWQcjeqYbvxsc3kvmHWPpz7B5JwDU:domain.example"}, "proof": [{"type": "DataIntegrityProof", "cryptosuite": "eddsa-jcs-2022", "verificationMethod": "did:key:z6Mkkr7iopdwZUgE87YaypKXSuBTsT6C7TyaUABmnHMuqmTY#z6Mkkr7iopdwZUgE87YaypKXSuBTsT6C7TyaUABmnHMuqmTY", "created": "2024-10-01T22:13:49Z", "proofPurpose": "authentication", "proofValue": "z3HXr9s1oJ8Uf81zdVUeN4a5oEDJHH46kFTgZ6uEruN6ZCZucTFmJvezY8hCLPjKBpF2rJVwHpdVWE2x621xTGvpK"}]}
{"versionId": "2-QmV9Kh7GTCWBhxeKoZfWGC1QpJh1oQNhkf34RjpDZjsRhu", "versionTime": "2024-10-01T22:13:49Z", "parameters": {"updateKeys": ["z6MkoSFjacZb7R82htx8n1AkpgLQWR7CA6rigsc2VH9acLuF"], "nextKeyHashes": ["QmTCxXN3Wyo2PEqnyn5zfgW2iPYZ9gijyeTp6TDxQAA6Xw"]}, "state": {"@context": ["https://www.w3.org/ns/did/v1"], "id": "did:webvh:QmaJp6pmb6RUk4oaDyWQcjeqYbvxsc3kvmHWPpz7B5JwDU:domain.example"}, "proof": [{"type": "DataIntegrityProof", "cryptosuite": "eddsa-jcs-2022", "verificationMethod": "did:key:z6Mkkr7iopdwZUgE87YaypKXSuBTsT6C7TyaUABmnHMuqmTY#z6Mkkr7iopdwZUgE87YaypKXSuBTsT6C7TyaUABmnHMuqmTY", "created": "2024-10-01T22:13:49Z", "proofPurpose": "authentication", "proofValue": "ziBh1y9Uf4xB1VWDc8YyZSGMWLLwE8CV4RWz9iT6bHRnbW8q8MndUuWLivBydNeBfX8qjKPcMX9vGTFyUWUm3znd"}]}
{"versionId": "3-QmVUpHdsP2LtPbuCVAmSApSDNfn9AeY3GVWuC9FXWByA3C", "versionTime": "2024-10-01T22:13:49Z", "parameters": {}, "state": {"@context": ["https://www.w3.org/ns/did/v1", "https://w3id.org/security/multikey/v1", "https://identity.foundation/.well-known/did-configuration/v1", "https://identity.foundation/linked-vp/contexts/v1"], "id": "did:webvh:QmaJp6pmb6RUk4oaDyWQcjeqYbvxsc3kvmHWPpz7B5JwDU:domain.example", "authentication": ["did:webvh:QmaJp6pmb6RUk4oaDyWQcjeqYbvxsc3kvmHWPpz7B5JwDU:domain.example#z6MkijyunEqPi7hzgJirb4tQLjztCPbJeeZvXEySuzbY6MLv"], "assertionMethod": ["did:webvh:QmaJp6pmb6RUk4oaDyWQcjeqYbvxsc3kvmHWPpz7B5JwDU:domain.example#z6MkijyunEqPi7hzgJirb4tQLjztCPbJeeZvXEySuzbY6MLv"], "verificationMethod": [{"id": "did:webvh:QmaJp6pmb6RUk4oaDyWQcjeqYbvxsc3kvmHWPpz7B5JwDU:domain.example#z6MkijyunEqPi7hzgJirb4tQLjztCPbJeeZvXEySuzbY6MLv", "controller": "did:webvh:QmaJp6pmb6RUk4oaDyWQcjeqYbvxsc3kvmHWPpz7B5JwDU:domain.example", "type": "Multikey", "publicKeyMultibase": "z6MkijyunEqPi7hzgJirb4tQLjztCPbJeeZvXEySuzbY6MLv"}], "service": [{"id": "did:webvh:QmaJp6pmb6RUk4oaDyWQcjeqYbvxsc3kvmHWPpz7B5JwDU:domain.example#domain", "type": "LinkedDomains", "serviceEndpoint": "https://domain.example"}, {"id": "did:webvh:QmaJp6pmb6RUk4oaDyWQcjeqYbvxsc3kvmHWPpz7B5JwDU:domain.example#whois", "type": "LinkedVerifiablePresentation", "serviceEndpoint": "https://domain.example/.well-known/whois.vc"}]}, "proof": [{"type": "DataIntegrityProof", "cryptosuite": "eddsa-jcs-2022", "verificationMethod": "did:key:z6MkoSFjacZb7R82htx8n1AkpgLQWR7CA6rigsc2VH9acLuF#z6MkoSFjacZb7R82htx8n1AkpgLQWR7CA6rigsc2VH9acLuF", "created": "2024-10-01T22:13:49Z", "proofPurpose": "authentication", "proofValue": "z32PcoCy9cRWBTUX8M9k5zNGunMnnn36B7yjwSnHJED7UfRC1EYJEDWiWP5yTdxy8QNKZRCitSDk4wzBtQM4nxNUj"}]}`

func fixedNow(t *testing.T) func() {
	orig := nowFunc
	nowFunc = func() time.Time {
		parsed, _ := time.Parse(time.RFC3339, "2025-01-01T00:00:00Z")
		return parsed
	}
	return func() { nowFunc = orig }
}

func TestVerifyEntriesEmptyLogIsNilNil(t *testing.T) {
	doc, err := VerifyEntries(nil)
	require.NoError(t, err)
	require.Nil(t, doc)
}

// TestVerifyEntriesThreeEntryLogRotationUnauthorized exercises the
// deserialization-only fixture through full replay. Entry 2's proof is
// signed with entry 1's key, but entry 1 commits next_key_hashes, so
// authorization for entry 2's own proof must already be entry 2's
// declared update key (spec §4.5's prerotation rule: once a previous
// entry commits next_key_hashes, the current entry's proof must be
// signed by the current entry's own update key, not the outgoing one).
// The fixture was only ever exercised for deserialization in the
// original source, not full verification, so this is expected to fail
// authorization rather than succeed.
func TestVerifyEntriesThreeEntryLogRotationUnauthorized(t *testing.T) {
	restore := fixedNow(t)
	defer restore()

	entries, err := ParseJSONL([]byte(threeEntryFixture))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	_, err = VerifyEntries(entries)
	require.ErrorIs(t, err, ErrUnauthorizedKey)
}

// TestVerifyEntriesSingleEntryLog exercises the success path using only
// entry 1, which is both the document's initial state and its own
// authority, avoiding the rotation-authorization question above.
func TestVerifyEntriesSingleEntryLog(t *testing.T) {
	restore := fixedNow(t)
	defer restore()

	lines := strings.Split(threeEntryFixture, "\n")
	entries, err := ParseJSONL([]byte(lines[0]))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	doc, err := VerifyEntries(entries)
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.Equal(t, "did:webvh:QmaJp6pmb6RUk4oaDyWQcjeqYbvxsc3kvmHWPpz7B5JwDU:domain.example", doc.ID)
}

// TestVerifyEntriesBackdatedEntryIsNonMonotonic mutates entry 2's
// version_time to precede entry 1's, which must be rejected. (Scenario
// S3's tamper case; resolved per DESIGN.md's Open Question to classify
// this as non-monotonic rather than reusing FutureTime for both checks.)
func TestVerifyEntriesBackdatedEntryIsNonMonotonic(t *testing.T) {
	restore := fixedNow(t)
	defer restore()

	tampered := strings.Replace(threeEntryFixture,
		`"versionId": "2-QmV9Kh7GTCWBhxeKoZfWGC1QpJh1oQNhkf34RjpDZjsRhu", "versionTime": "2024-10-01T22:13:49Z"`,
		`"versionId": "2-QmV9Kh7GTCWBhxeKoZfWGC1QpJh1oQNhkf34RjpDZjsRhu", "versionTime": "2024-09-01T22:13:49Z"`,
		1)

	entries, err := ParseJSONL([]byte(tampered))
	require.NoError(t, err)

	_, err = VerifyEntries(entries)
	require.ErrorIs(t, err, ErrNonMonotonicTime)
}

func TestVerifyEntriesFutureTimeRejected(t *testing.T) {
	restoreNow := func() { nowFunc = time.Now }
	nowFunc = func() time.Time {
		parsed, _ := time.Parse(time.RFC3339, "2024-01-01T00:00:00Z")
		return parsed
	}
	defer restoreNow()

	entries, err := ParseJSONL([]byte(threeEntryFixture))
	require.NoError(t, err)

	_, err = VerifyEntries(entries)
	require.ErrorIs(t, err, ErrFutureTime)
}

func TestVerifyEntriesNonSequentialVersionRejected(t *testing.T) {
	restore := fixedNow(t)
	defer restore()

	lines := strings.Split(threeEntryFixture, "\n")
	onlyFirstAndThird := lines[0] + "\n" + lines[2]

	entries, err := ParseJSONL([]byte(onlyFirstAndThird))
	require.NoError(t, err)

	_, err = VerifyEntries(entries)
	require.ErrorIs(t, err, ErrNonSequentialVersion)
}
