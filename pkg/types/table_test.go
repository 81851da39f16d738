package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPathJSON(t *testing.T) {
	single, err := json.Marshal(KeyPath{"id"})
	require.NoError(t, err)
	assert.JSONEq(t, `"id"`, string(single))

	compound, err := json.Marshal(KeyPath{"workspaceId", "board"})
	require.NoError(t, err)
	assert.JSONEq(t, `["workspaceId","board"]`, string(compound))

	var k KeyPath
	require.NoError(t, json.Unmarshal([]byte(`"id"`), &k))
	assert.Equal(t, KeyPath{"id"}, k)
	assert.False(t, k.Compound())

	require.NoError(t, json.Unmarshal([]byte(`["a","b"]`), &k))
	assert.Equal(t, KeyPath{"a", "b"}, k)
	assert.True(t, k.Compound())

	assert.Error(t, json.Unmarshal([]byte(`42`), &k))
}

func TestNewIndex(t *testing.T) {
	assert.Equal(t, IndexSchema{Name: "leadId", KeyPath: KeyPath{"leadId"}}, NewIndex("leadId"))
	assert.Equal(t,
		IndexSchema{Name: "[workspaceId+usernameLower]", KeyPath: KeyPath{"workspaceId", "usernameLower"}},
		NewIndex("workspaceId", "usernameLower"))

	schema := TableSchema{Name: "leads", PrimaryKey: "id", Indexes: []IndexSchema{NewIndex("workspaceId", "board")}}
	idx, ok := schema.Index("[workspaceId+board]")
	assert.True(t, ok)
	assert.Equal(t, KeyPath{"workspaceId", "board"}, idx.KeyPath)
	_, ok = schema.Index("board")
	assert.False(t, ok)
}
