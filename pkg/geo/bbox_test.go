package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/doms/pkg/domserrors"
)

func TestParseBoundingBox(t *testing.T) {
	bb, err := ParseBoundingBox("-45, 15.5, -30 ,30")
	require.NoError(t, err)

	assert.Equal(t, BoundingBox{West: -45, South: 15.5, East: -30, North: 30}, bb)
	assert.Equal(t, "-45,15.5,-30,30", bb.String())
	assert.Equal(t, map[string]interface{}{
		"north": 30.0, "south": 15.5, "east": -30.0, "west": -45.0,
	}, bb.ToMap())
}

func TestParseBoundingBoxMalformed(t *testing.T) {
	for _, s := range []string{"", "1,2,3", "1,2,3,4,5", "a,2,3,4", "0,50,10,40"} {
		t.Run(s, func(t *testing.T) {
			_, err := ParseBoundingBox(s)
			require.Error(t, err)
			assert.True(t, domserrors.IsMalformedBoundingBox(err), "got %v", err)
		})
	}
}
