package json

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalIndentString(t *testing.T) {
	out, err := MarshalIndentString(map[string]interface{}{
		"b": []int{1, 2},
		"a": "<tag>",
	}, "    ")
	require.NoError(t, err)

	expected := "{\n    \"a\": \"<tag>\",\n    \"b\": [\n        1,\n        2\n    ]\n}"
	assert.Equal(t, expected, out)
}

func TestMarshalIndentStringRejectsNaN(t *testing.T) {
	_, err := MarshalIndentString(map[string]float64{"x": math.NaN()}, "    ")
	assert.Error(t, err)
}

func TestNewDecoderKeepsNumbers(t *testing.T) {
	dec := NewDecoder(strings.NewReader(`{"startTime": 1357084800000}`))

	var doc map[string]interface{}
	require.NoError(t, dec.Decode(&doc))

	n, ok := doc["startTime"].(Number)
	require.True(t, ok, "got %T", doc["startTime"])
	v, err := n.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(1357084800000), v)
}

func TestUnmarshalFloats(t *testing.T) {
	var values map[string]interface{}
	require.NoError(t, Unmarshal([]byte(`{"sea_water_temperature": 27.5, "flag": null}`), &values))
	assert.Equal(t, 27.5, values["sea_water_temperature"])
	assert.Nil(t, values["flag"])
}

func TestBufferPoolResets(t *testing.T) {
	buf := getBuffer()
	buf.WriteString("stale")
	putBuffer(buf)

	assert.Equal(t, 0, getBuffer().Len())
	putBuffer(bytes.NewBuffer(make([]byte, 0, maxPooledBuffer+1)))
}

func BenchmarkMarshalIndentString(b *testing.B) {
	doc := map[string]interface{}{"data": []map[string]interface{}{{"x": 1.5, "y": -2.25}}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := MarshalIndentString(doc, "    "); err != nil {
			b.Fatal(err)
		}
	}
}
