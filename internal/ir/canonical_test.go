package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int64", int64(42), "42"},
		{"negative int", int64(-100), "-100"},
		{"max int64", int64(9223372036854775807), "9223372036854775807"},
		{"min int64", int64(-9223372036854775808), "-9223372036854775808"},
		{"uint64", uint64(18446744073709551615), "18446744073709551615"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"int slice", []int64{3, -1, 0}, "[3,-1,0]"},
		{"empty int slice", []int64{}, "[]"},
		{"any slice", []any{"a", int64(1), true}, `["a",1,true]`},
		{"simple object", map[string]any{"a": int64(1)}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": int64(1),
		"alpha": int64(2),
		"beta":  map[string]any{"y": int64(1), "x": int64(2)},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"x":2,"y":1},"zebra":1}`, string(result))
}

func TestMarshalCanonicalEscaping(t *testing.T) {
	result, err := MarshalCanonical("a\"b\\c\n<&> \x01")
	require.NoError(t, err)
	assert.Equal(t, "\"a\\\"b\\\\c\\n<&> \\u0001\"", string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "é" as e + combining acute normalizes to the precomposed form.
	decomposed, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	composed, err := MarshalCanonical("\u00e9")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestMarshalCanonicalRejects(t *testing.T) {
	for name, v := range map[string]any{
		"nil":    nil,
		"float":  1.5,
		"struct": struct{}{},
		"nested": map[string]any{"a": []any{nil}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := MarshalCanonical(v)
			assert.Error(t, err)
		})
	}
}

func TestStateDigest_Deterministic(t *testing.T) {
	a := map[string][]int64{"tree": {1, -1, 0}, "holder_balance": {5}}
	b := map[string][]int64{"holder_balance": {5}, "tree": {1, -1, 0}}

	da, err := StateDigest(a)
	require.NoError(t, err)
	db, err := StateDigest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Len(t, da, 64)

	b["holder_balance"] = []int64{6}
	dc, err := StateDigest(b)
	require.NoError(t, err)
	assert.NotEqual(t, da, dc)
}

func TestDefinitionHash_DiffersByDefinition(t *testing.T) {
	assert.Equal(t, DefinitionHash([]int64{1}), DefinitionHash([]int64{1}))
	assert.NotEqual(t, DefinitionHash([]int64{1}), DefinitionHash([]int64{0}))
}
