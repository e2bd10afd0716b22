package json

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ordered struct {
	B string `json:"b"`
	A int64  `json:"a"`
	C *bool  `json:"c,omitempty"`
}

func TestMarshalPreservesFieldOrder(t *testing.T) {
	t.Parallel()
	data, err := Marshal(ordered{B: "x", A: 7})
	require.NoError(t, err)
	assert.Equal(t, `{"b":"x","a":7}`, string(data))
}

func TestUnmarshalRawMessage(t *testing.T) {
	t.Parallel()
	var v struct {
		Response RawMessage `json:"response"`
	}
	require.NoError(t, Unmarshal([]byte(`{"response":"Order has invalid price"}`), &v))
	assert.Equal(t, `"Order has invalid price"`, string(v.Response))
}

func TestEncoderDecoder(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(ordered{B: "y", A: 1}))
	var out ordered
	require.NoError(t, NewDecoder(&buf).Decode(&out))
	assert.Equal(t, ordered{B: "y", A: 1}, out)
	assert.True(t, Valid([]byte(`{"a":1}`)))
	assert.False(t, Valid([]byte(`{"a":}`)))
	assert.NotEmpty(t, Implementation)
}
