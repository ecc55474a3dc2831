package datamodels

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultRecordJSONShape(t *testing.T) {
	rec := NewResultRecord("echo hi", "hi\n", "abc-123")

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"command":"echo hi","output":"hi\n","device_id":"abc-123"}`, string(raw))

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Len(t, fields, 3)
}
