package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStationIDs(t *testing.T) {
	ids, err := ParseStationIDs(strings.NewReader("  S1\n\nS2  \r\n\t\nS1\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2", "S1"}, ids)
}

func TestParseStationIDsEmpty(t *testing.T) {
	ids, err := ParseStationIDs(strings.NewReader(""))
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestLoadStationIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gas_station_list.txt")
	require.NoError(t, os.WriteFile(path, []byte("51d4b477-a095-1aa0-e100-80009459e03a\n005056ba-7cb6-1ed2-bceb-90e59ad2cd35\n"), 0o600))

	ids, err := LoadStationIDs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"51d4b477-a095-1aa0-e100-80009459e03a", "005056ba-7cb6-1ed2-bceb-90e59ad2cd35"}, ids)
}

func TestLoadStationIDsMissingFile(t *testing.T) {
	_, err := LoadStationIDs(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
