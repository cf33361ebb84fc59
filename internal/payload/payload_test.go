package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantName string
	}{
		{
			name:     "enveloped object",
			body:     `{"success":true,"message":"ok","data":{"_id":"house-1","name":"Integration Villa"}}`,
			wantName: "Integration Villa",
		},
		{
			name:     "bare object",
			body:     `{"id":"house-1","name":"Integration Villa"}`,
			wantName: "Integration Villa",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Normalize([]byte(tt.body))
			require.NoError(t, err)

			name, ok := String(p, "name")
			require.True(t, ok)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestNormalize_EnvelopedList(t *testing.T) {
	p, err := Normalize([]byte(`{"data":[{"_id":"a"},{"_id":"b"}]}`))
	require.NoError(t, err)

	items, ok := List(p)
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestNormalize_BareList(t *testing.T) {
	p, err := Normalize([]byte(`[{"id":"a"}]`))
	require.NoError(t, err)

	items, ok := List(p)
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestNormalize_NullEnvelopeIsPayload(t *testing.T) {
	p, err := Normalize([]byte(`{"success":true,"data":null}`))
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestNormalize_NotJSON(t *testing.T) {
	_, err := Normalize([]byte("<html>Bad Gateway</html>"))
	assert.Error(t, err)

	_, err = Normalize(nil)
	assert.Error(t, err)
}

func TestResolveID(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		wantID string
		wantOK bool
	}{
		{"primary key", `{"_id":"room-1"}`, "room-1", true},
		{"fallback key", `{"id":"room-2"}`, "room-2", true},
		{"primary wins", `{"_id":"room-1","id":"room-2"}`, "room-1", true},
		{"empty primary falls back", `{"_id":"","id":"room-2"}`, "room-2", true},
		{"numeric id", `{"id":42}`, "42", true},
		{"missing", `{"name":"x"}`, "", false},
		{"not an object", `["room-1"]`, "", false},
		{"null id", `{"_id":null}`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Normalize([]byte(tt.body))
			require.NoError(t, err)

			id, ok := ResolveID(p)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestContainsID(t *testing.T) {
	p, err := Normalize([]byte(`{"data":[{"_id":"house-1"},{"id":"house-2"},{"name":"no id"},"junk"]}`))
	require.NoError(t, err)
	items, ok := List(p)
	require.True(t, ok)

	assert.True(t, ContainsID(items, "house-1"))
	assert.True(t, ContainsID(items, "house-2"))
	assert.False(t, ContainsID(items, "house-3"))
	assert.False(t, ContainsID(items, ""))
	assert.False(t, ContainsID(nil, "house-1"))
}

func TestString_NonString(t *testing.T) {
	p, err := Normalize([]byte(`{"status":1}`))
	require.NoError(t, err)

	_, ok := String(p, "status")
	assert.False(t, ok)

	_, ok = String(p, "missing")
	assert.False(t, ok)
}
