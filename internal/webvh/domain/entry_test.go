// SPDX-License-Identifier: LGPL-3.0-or-later

package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const scidFixtureJSON = `{
  "versionId": "{SCID}",
  "versionTime": "2025-01-24T02:21:51Z",
  "parameters": {
    "updateKeys": ["z6MkjUuC31SMY2fengpaaDnQ9gFpjaWy4yMyfedAQYp1eSJZ"],
    "method": "did:webvh:0.4",
    "scid": "{SCID}"
  },
  "state": {
    "@context": ["https://www.w3.org/ns/did/v1"],
    "id": "did:webvh:{SCID}:example.com:eve"
  }
}`

// TestCalcEntryHashSCID reproduces scenario S2: SCID recomputation.
func TestCalcEntryHashSCID(t *testing.T) {
	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(scidFixtureJSON), &entry))

	scid, err := entry.CalcEntryHash()
	require.NoError(t, err)
	require.Equal(t, "QmbUzhqS4Fx6ueq6gopKQBNe2Dyj4dddCTyPuN4pncYxYG", scid)

	withSCID, err := entry.WithSCID(scid)
	require.NoError(t, err)
	require.Equal(t, scid, withSCID.Parameters.SCID)

	entryHash, err := withSCID.CalcEntryHash()
	require.NoError(t, err)
	require.Equal(t, "QmeyX9Tripap4bpri4324AUDCeUpBXKHRBHW89rnWa4mKw", entryHash)
}

func TestParseVersionID(t *testing.T) {
	e := LogEntry{VersionID: "1-QmRD52wqs942kZ2gs7UU9QmaopvqnMziqB4qgFDYsapCT9"}
	n, h, err := e.ParseVersionID()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "QmRD52wqs942kZ2gs7UU9QmaopvqnMziqB4qgFDYsapCT9", h)
}

func TestParseVersionIDInvalid(t *testing.T) {
	e := LogEntry{VersionID: "not-a-valid-one-either-way"}
	_, _, err := e.ParseVersionID()
	require.ErrorIs(t, err, ErrInvalidVersionID)
}

func TestReplaceToSCIDPlaceholder(t *testing.T) {
	entry := LogEntry{
		VersionID:  "1-QmRD52wqs942kZ2gs7UU9QmaopvqnMziqB4qgFDYsapCT9",
		Parameters: Parameters{SCID: "QmaJp6pmb6RUk4oaDyWQcjeqYbvxsc3kvmHWPpz7B5JwDU"},
		State:      DidDocument{ID: "did:webvh:QmaJp6pmb6RUk4oaDyWQcjeqYbvxsc3kvmHWPpz7B5JwDU:domain.example"},
	}
	replaced, err := entry.ReplaceToSCIDPlaceholder()
	require.NoError(t, err)
	require.Equal(t, "{SCID}", replaced.Parameters.SCID)
	require.Equal(t, "{SCID}", replaced.VersionID)
	require.Equal(t, "did:webvh:{SCID}:domain.example", replaced.State.ID)
}
