package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchId_JSONRoundTrip(t *testing.T) {
	id, err := NewBranchId("abc1234e-89b1-4d2a-9f3c-111111111111")
	require.NoError(t, err)

	raw, err := json.Marshal(id)
	require.NoError(t, err)

	var out BranchId
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.True(t, id.Equal(out))
	assert.Equal(t, id.String(), out.String())
}

func TestBranchId_CodeFormNormalizedToUppercase(t *testing.T) {
	id, err := NewBranchId("br01")
	require.NoError(t, err)
	assert.Equal(t, "BR01", id.String())
}
