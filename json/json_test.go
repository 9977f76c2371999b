package json

import (
	"bytes"
	stdjson "encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type renderOptions struct {
	Format  string  `json:"format" default:"jpeg"`
	Quality int     `json:"quality" default:"90"`
	Seed    *uint64 `json:"seed,omitempty"`
	Plain   bool    `json:"plain"`
}

func TestMarshalAppliesDefaults(t *testing.T) {
	opts := &renderOptions{Plain: true}

	data, err := Marshal(opts)
	require.NoError(t, err)

	assert.Equal(t, "jpeg", opts.Format)
	assert.JSONEq(t, `{"format":"jpeg","quality":90,"plain":true}`, string(data))
}

func TestMarshalNonStructValues(t *testing.T) {
	data, err := Marshal(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2}`, string(data))

	data, err = Marshal([]string{"<linen>"})
	require.NoError(t, err)
	// standard library compatible: HTML is escaped like encoding/json
	want, _ := stdjson.Marshal([]string{"<linen>"})
	assert.Equal(t, string(want), string(data))

	var nilOpts *renderOptions
	data, err = Marshal(nilOpts)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestUnmarshalKeepsExplicitValues(t *testing.T) {
	var opts renderOptions
	require.NoError(t, Unmarshal([]byte(`{"quality":0,"seed":7}`), &opts))

	assert.Equal(t, "jpeg", opts.Format)
	assert.Equal(t, 0, opts.Quality)
	require.NotNil(t, opts.Seed)
	assert.EqualValues(t, 7, *opts.Seed)
}

func TestDecoderAppliesDefaults(t *testing.T) {
	var opts renderOptions
	require.NoError(t, NewDecoder(strings.NewReader(`{"format":"png"}`)).Decode(&opts))

	assert.Equal(t, "png", opts.Format)
	assert.Equal(t, 90, opts.Quality)
}

func TestDecoderDisallowUnknownFields(t *testing.T) {
	dec := NewDecoder(strings.NewReader(`{"format":"png","brush":3}`))
	dec.DisallowUnknownFields()

	var opts renderOptions
	assert.Error(t, dec.Decode(&opts))
}

func TestEncoderAndIndent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(&renderOptions{}))
	assert.JSONEq(t, `{"format":"jpeg","quality":90,"plain":false}`, buf.String())

	data, err := MarshalIndent(&renderOptions{Format: "png"}, "", "  ")
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"format\": \"png\"")
}
