package flatten

import (
	"math"

	"github.com/ajitpratap0/doms/pkg/matchup"
)

// Project returns the named field of every record as a float, aligned with
// Flatten over the same tree. Records lacking the field project to NaN.
func Project(tree matchup.Tree, field string) []float64 {
	out := make([]float64, 0, tree.Size())
	Walk(tree, func(_, _, _ int, rec *matchup.Record) {
		v, ok := rec.Get(field)
		if !ok {
			out = append(out, math.NaN())
			return
		}
		out = append(out, v.Float64())
	})
	return out
}

// Float32s narrows a projection to float32. NaN stays NaN.
func Float32s(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}

// Int32s narrows identifiers to int32. ok is false if any identifier does not
// fit.
func Int32s(values []int) (out []int32, ok bool) {
	out = make([]int32, len(values))
	for i, v := range values {
		if v > math.MaxInt32 || v < math.MinInt32 {
			return nil, false
		}
		out[i] = int32(v)
	}
	return out, true
}
