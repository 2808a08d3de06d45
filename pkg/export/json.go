package export

import (
	"math"
	"time"

	"github.com/ajitpratap0/doms/pkg/domserrors"
	jsonpool "github.com/ajitpratap0/doms/pkg/json"
	"github.com/ajitpratap0/doms/pkg/matchup"
)

// JSONIndent is the indentation of exported documents.
const JSONIndent = "    "

// Transformer rewrites one scalar before it is encoded. ok is false when the
// transformer does not handle v, in which case the next one is tried.
type Transformer func(v interface{}) (out interface{}, ok bool)

// EpochSeconds encodes a time.Time as whole seconds since the Unix epoch,
// truncated toward zero.
func EpochSeconds(v interface{}) (interface{}, bool) {
	t, ok := v.(time.Time)
	if !ok {
		return nil, false
	}
	sec := t.Unix()
	if sec < 0 && t.Nanosecond() > 0 {
		sec++
	}
	return sec, true
}

// NonFiniteAsNull encodes NaN and infinities as null.
func NonFiniteAsNull(v interface{}) (interface{}, bool) {
	switch f := v.(type) {
	case float64:
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, true
		}
	case float32:
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil, true
		}
	}
	return nil, false
}

// DefaultTransformers are applied when an Encoder is built without any.
var DefaultTransformers = []Transformer{EpochSeconds, NonFiniteAsNull}

// Encoder renders executions as indented JSON documents. Values pass through
// the transformers first; anything left that is not a plain JSON scalar,
// list or object fails with an encoding error.
type Encoder struct {
	transformers []Transformer
	indent       string
}

// NewEncoder creates an encoder with the given transformers, or
// DefaultTransformers when none are given.
func NewEncoder(transformers ...Transformer) *Encoder {
	if len(transformers) == 0 {
		transformers = DefaultTransformers
	}
	return &Encoder{transformers: transformers, indent: JSONIndent}
}

// document fixes the key order of the exported payload.
type document struct {
	ExecutionID string                 `json:"executionId"`
	Data        []interface{}          `json:"data"`
	Params      map[string]interface{} `json:"params"`
	Bounds      map[string]interface{} `json:"bounds"`
	Count       int                    `json:"count"`
	Details     map[string]interface{} `json:"details"`
}

// Encode renders exec. The tree keeps its nesting; each record's children
// appear under "matches".
func (e *Encoder) Encode(exec *matchup.Execution) (string, error) {
	data, err := e.tree(exec.Tree)
	if err != nil {
		return "", err
	}
	params, err := e.object(exec.Params)
	if err != nil {
		return "", err
	}
	details, err := e.object(exec.Details)
	if err != nil {
		return "", err
	}
	bounds := map[string]interface{}{}
	if exec.Bounds != nil {
		if bounds, err = e.object(exec.Bounds.ToMap()); err != nil {
			return "", err
		}
	}

	doc := document{
		ExecutionID: exec.ID,
		Data:        data,
		Params:      params,
		Bounds:      bounds,
		Count:       exec.ResultCount(),
		Details:     details,
	}
	out, err := jsonpool.MarshalIndentString(doc, e.indent)
	if err != nil {
		return "", domserrors.Wrap(err, domserrors.ErrorTypeEncoding, "failed to marshal document")
	}
	return out, nil
}

// Normalize converts v into plain JSON values, applying the transformers to
// every scalar.
func (e *Encoder) Normalize(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case matchup.Tree:
		return e.tree(t)
	case []*matchup.Record:
		return e.tree(t)
	case *matchup.Record:
		return e.record(t)
	case matchup.Value:
		return e.scalar(t.Interface())
	case matchup.Params:
		return e.object(t)
	case matchup.Details:
		return e.object(t)
	case map[string]interface{}:
		return e.object(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			n, err := e.Normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	default:
		return e.scalar(v)
	}
}

func (e *Encoder) tree(records []*matchup.Record) ([]interface{}, error) {
	out := make([]interface{}, 0, len(records))
	for _, rec := range records {
		r, err := e.record(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (e *Encoder) record(rec *matchup.Record) (map[string]interface{}, error) {
	out := make(map[string]interface{}, rec.Len()+1)
	for _, name := range rec.FieldNames() {
		v, _ := rec.Get(name)
		s, err := e.scalar(v.Interface())
		if err != nil {
			return nil, err
		}
		out[name] = s
	}
	if rec.Matches != nil {
		matches, err := e.tree(rec.Matches)
		if err != nil {
			return nil, err
		}
		out[matchup.MatchesKey] = matches
	}
	return out, nil
}

func (e *Encoder) object(m map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		n, err := e.Normalize(v)
		if err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, nil
}

func (e *Encoder) scalar(v interface{}) (interface{}, error) {
	for _, t := range e.transformers {
		if out, ok := t(v); ok {
			return out, nil
		}
	}
	switch v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, nil
	default:
		return nil, domserrors.Encoding(v)
	}
}
