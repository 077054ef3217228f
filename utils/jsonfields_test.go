package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fieldsRecord struct {
	Name   string    `json:"name"`
	Width  float32   `json:"width,omitempty"`
	Offset []float32 `json:"offset"`
	Skip   string    `json:"-"`
	Plain  int
}

func TestUnmarshalFieldsKeepsDefaults(t *testing.T) {
	r := fieldsRecord{Width: 1, Offset: []float32{0, 0}, Skip: "keep"}
	errs, err := UnmarshalFields([]byte(`{"name": 5, "width": 2, "offset": [1, "x"], "Skip": "no", "plain": 3}`), &r)
	require.NoError(t, err)

	assert.Equal(t, "", r.Name)
	assert.Equal(t, float32(2), r.Width)
	assert.Equal(t, []float32{0, 0}, r.Offset)
	assert.Equal(t, "keep", r.Skip)
	assert.Equal(t, 3, r.Plain)

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), `"name"`)
	assert.Contains(t, errs[1].Error(), `"offset"`)
}

func TestUnmarshalFieldsNeedsObject(t *testing.T) {
	for _, src := range []string{`5`, `[1, 2]`, `"x"`, `null`, ``} {
		var r fieldsRecord
		_, err := UnmarshalFields([]byte(src), &r)
		assert.Error(t, err, src)
	}

	_, err := UnmarshalFields([]byte(`{}`), fieldsRecord{})
	assert.Error(t, err)
}
