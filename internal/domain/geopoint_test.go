package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoPoint_JSONRoundTrip(t *testing.T) {
	p, err := NewGeoPoint(40.4168, -3.7038)
	require.NoError(t, err)

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var out GeoPoint
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.Equal(t, p.Lat(), out.Lat())
	assert.Equal(t, p.Lon(), out.Lon())
}
