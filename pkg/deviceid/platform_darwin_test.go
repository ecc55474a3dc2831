package deviceid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIOReg(t *testing.T) {
	out := []byte(`+-o J316sAP  <class IOPlatformExpertDevice>
    {
      "IOPlatformSerialNumber" = "C02XXXXXXX"
      "IOPlatformUUID" = "9A1B2C3D-0000-1111-2222-333344445555"
    }`)
	id, err := parseIOReg(out)
	require.NoError(t, err)
	assert.Equal(t, "9A1B2C3D-0000-1111-2222-333344445555", id)

	_, err = parseIOReg([]byte("nothing here"))
	assert.ErrorIs(t, err, ErrNotFound)
}
