package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// DecodeStages returns the stage records of an engine document as plain
// JSON values.
func DecodeStages(t *testing.T, doc []byte) []map[string]any {
	t.Helper()
	var d struct {
		Pipeline []map[string]any `json:"pipeline"`
	}
	require.NoError(t, json.Unmarshal(doc, &d))
	return d.Pipeline
}

// AssertConnected checks that the record at index from connects through
// role to the record at index to.
func AssertConnected(t *testing.T, stages []map[string]any, from int, role string, to int) {
	t.Helper()
	require.Less(t, from, len(stages))
	require.Less(t, to, len(stages))
	require.Equal(t, stages[to]["uid"], stages[from][role],
		"expected %s of stage %d (%v) to point at stage %d (%v)",
		role, from, stages[from]["algoname"], to, stages[to]["algoname"])
}
