// Package geo parses the geospatial bounding boxes carried in matchup run
// parameters.
package geo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ajitpratap0/doms/pkg/domserrors"
)

// BoundingBox holds the four extrema of a search area in degrees.
type BoundingBox struct {
	North float64
	South float64
	East  float64
	West  float64
}

// ParseBoundingBox parses a "west,south,east,north" string. Whitespace around
// each component is ignored. Any other shape, a non-numeric component, or
// south above north fails with a malformed bounding box error.
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, domserrors.MalformedBoundingBox(s,
			fmt.Errorf("expected 4 comma separated values, got %d", len(parts)))
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, domserrors.MalformedBoundingBox(s, err)
		}
		v[i] = f
	}

	bb := BoundingBox{West: v[0], South: v[1], East: v[2], North: v[3]}
	if bb.South > bb.North {
		return BoundingBox{}, domserrors.MalformedBoundingBox(s,
			fmt.Errorf("south %g is above north %g", bb.South, bb.North))
	}
	return bb, nil
}

// String formats the box back into "west,south,east,north" form.
func (b BoundingBox) String() string {
	return strings.Join([]string{
		strconv.FormatFloat(b.West, 'g', -1, 64),
		strconv.FormatFloat(b.South, 'g', -1, 64),
		strconv.FormatFloat(b.East, 'g', -1, 64),
		strconv.FormatFloat(b.North, 'g', -1, 64),
	}, ",")
}

// ToMap returns the extrema keyed by compass direction.
func (b BoundingBox) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"north": b.North,
		"south": b.South,
		"east":  b.East,
		"west":  b.West,
	}
}
