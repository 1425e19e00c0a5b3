package adapter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaGeneratesPropertiesForParamsStruct(t *testing.T) {
	raw, err := Schema(&zookeeperSendParams{})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok, "schema should have a properties object")
	assert.Contains(t, props, "command")
	assert.Contains(t, props, "host")
	assert.Contains(t, props, "port")
	assert.Equal(t, false, doc["additionalProperties"])
}
