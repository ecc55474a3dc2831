package deviceid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFirstSkipsMissingAndBlank(t *testing.T) {
	dir := t.TempDir()
	blank := filepath.Join(dir, "blank")
	good := filepath.Join(dir, "machine-id")
	require.NoError(t, os.WriteFile(blank, []byte("\n"), 0600))
	require.NoError(t, os.WriteFile(good, []byte("4c4c4544004d3510\n"), 0600))

	id, err := readFirst([]string{filepath.Join(dir, "absent"), blank, good})
	require.NoError(t, err)
	assert.Equal(t, "4c4c4544004d3510", id)

	_, err = readFirst([]string{filepath.Join(dir, "absent")})
	assert.ErrorIs(t, err, ErrNotFound)
}
