package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagListScan(t *testing.T) {
	t.Run("postgres array literal", func(t *testing.T) {
		var tags TagList
		require.NoError(t, tags.Scan([]byte(`{COMP256,"machine learning"}`)))
		assert.Equal(t, TagList{"COMP256", "machine learning"}, tags)
	})

	t.Run("json array", func(t *testing.T) {
		var tags TagList
		require.NoError(t, tags.Scan(`["AI","research"]`))
		assert.Equal(t, TagList{"AI", "research"}, tags)
	})

	t.Run("null", func(t *testing.T) {
		var tags TagList
		require.NoError(t, tags.Scan(nil))
		assert.Empty(t, tags)
	})

	t.Run("unsupported type", func(t *testing.T) {
		var tags TagList
		assert.Error(t, tags.Scan(42))
	})
}

func TestTagListMarshalJSON(t *testing.T) {
	var tags TagList
	b, err := json.Marshal(tags)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	b, err = json.Marshal(TagList{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, string(b))
}

func TestTagListContains(t *testing.T) {
	tags := TagList{"AI", "COMP256", "research"}
	assert.True(t, tags.Contains("AI"))
	assert.True(t, tags.Contains("AI", "research"))
	assert.False(t, tags.Contains("AI", "biology"))
	assert.False(t, tags.Contains("ai"))
	assert.True(t, tags.Contains())
}
