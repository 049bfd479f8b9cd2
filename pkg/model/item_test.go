package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemKind_String(t *testing.T) {
	tests := []struct {
		kind     ItemKind
		expected string
	}{
		{KindCode, "code"},
		{KindData, "data"},
		{KindType, "type"},
		{KindOther, "other"},
		{ItemKind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestParseItemKind(t *testing.T) {
	tests := []struct {
		input    string
		expected ItemKind
		wantErr  bool
	}{
		{"code", KindCode, false},
		{"DATA", KindData, false},
		{" type ", KindType, false},
		{"other", KindOther, false},
		{"metadata", KindOther, false},
		{"segment", KindOther, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, err := ParseItemKind(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kind)
		})
	}
}

func TestItemKind_JSON(t *testing.T) {
	data, err := json.Marshal(Item{ID: 3, Name: "memcpy", Kind: KindCode, Size: 120})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"name":"memcpy","kind":"code","size":120}`, string(data))

	var item Item
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":"d","kind":"data","size":4}`), &item))
	assert.Equal(t, KindData, item.Kind)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"bogus"}`), &item))

	_, err = json.Marshal(ItemKind(42))
	assert.Error(t, err)
}

func TestEdgeKind_RoundTrip(t *testing.T) {
	for _, kind := range []EdgeKind{EdgeUnlabeled, EdgeCall, EdgeData, EdgeType, EdgeRef} {
		t.Run(kind.String(), func(t *testing.T) {
			text, err := kind.MarshalText()
			require.NoError(t, err)

			var parsed EdgeKind
			require.NoError(t, parsed.UnmarshalText(text))
			assert.Equal(t, kind, parsed)
		})
	}

	_, err := ParseEdgeKind("jump")
	assert.Error(t, err)
}

func TestEdge_JSONOmitsUnlabeledKind(t *testing.T) {
	data, err := json.Marshal(Edge{From: 1, To: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":1,"to":2}`, string(data))
}
