package matchup

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/doms/pkg/domserrors"
	"github.com/ajitpratap0/doms/pkg/geo"
	jsonpool "github.com/ajitpratap0/doms/pkg/json"
)

// MatchesKey is the document key holding a record's child records.
const MatchesKey = "matches"

// Document keys of a serialized execution, shared with the text exporter.
const (
	KeyExecutionID = "executionId"
	KeyData        = "data"
	KeyParams      = "params"
	KeyBounds      = "bounds"
	KeyCount       = "count"
	KeyDetails     = "details"
)

// jsonNumber is satisfied by the number types of both encoding/json and
// goccy/go-json.
type jsonNumber interface {
	String() string
	Int64() (int64, error)
	Float64() (float64, error)
}

// Decode reads an execution document of the shape produced by the text
// exporter. A missing executionId is replaced by a fresh UUID and a missing
// count by -1. String field values in RFC 3339 form decode as timestamps.
func Decode(r io.Reader) (*Execution, error) {
	dec := jsonpool.NewDecoder(r)
	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, domserrors.Wrap(err, domserrors.ErrorTypeValidation, "failed to parse execution document")
	}
	return fromDocument(doc)
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte) (*Execution, error) {
	return Decode(bytes.NewReader(data))
}

func fromDocument(doc map[string]interface{}) (*Execution, error) {
	exec := &Execution{Count: -1}

	switch id := doc[KeyExecutionID].(type) {
	case nil:
		exec.ID = uuid.NewString()
	case string:
		exec.ID = id
	default:
		return nil, invalidDocument(KeyExecutionID, "must be a string")
	}

	if raw, ok := doc[KeyData]; ok && raw != nil {
		items, ok := raw.([]interface{})
		if !ok {
			return nil, invalidDocument(KeyData, "must be a list of records")
		}
		tree, err := decodeRecords(items, KeyData)
		if err != nil {
			return nil, err
		}
		exec.Tree = tree
	} else {
		exec.Tree = Tree{}
	}

	params, err := decodeMapping(doc[KeyParams], KeyParams)
	if err != nil {
		return nil, err
	}
	exec.Params = Params(params)

	details, err := decodeMapping(doc[KeyDetails], KeyDetails)
	if err != nil {
		return nil, err
	}
	exec.Details = Details(details)

	bounds, err := decodeBounds(doc[KeyBounds])
	if err != nil {
		return nil, err
	}
	exec.Bounds = bounds

	if raw, ok := doc[KeyCount]; ok && raw != nil {
		n, ok := raw.(jsonNumber)
		if !ok {
			return nil, invalidDocument(KeyCount, "must be a number")
		}
		count, err := n.Int64()
		if err != nil {
			return nil, invalidDocument(KeyCount, "must be an integer")
		}
		exec.Count = int(count)
	}

	return exec, nil
}

func decodeRecords(items []interface{}, path string) (Tree, error) {
	tree := make(Tree, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, invalidDocument(fmt.Sprintf("%s[%d]", path, i), "must be an object")
		}
		rec, err := decodeRecord(obj, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		tree = append(tree, rec)
	}
	return tree, nil
}

func decodeRecord(obj map[string]interface{}, path string) (*Record, error) {
	rec := NewRecord()
	for name, raw := range obj {
		if name == MatchesKey {
			if raw == nil {
				continue
			}
			items, ok := raw.([]interface{})
			if !ok {
				return nil, invalidDocument(path+"."+MatchesKey, "must be a list of records")
			}
			children, err := decodeRecords(items, path+"."+MatchesKey)
			if err != nil {
				return nil, err
			}
			rec.Matches = children
			continue
		}

		switch v := raw.(type) {
		case nil:
			// null fields are absent
		case string:
			if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
				rec.Set(name, Time(ts))
			} else {
				rec.Set(name, String(v))
			}
		case jsonNumber:
			f, err := v.Float64()
			if err != nil {
				return nil, invalidDocument(path+"."+name, "is not a valid number")
			}
			rec.Set(name, Number(f))
		case float64:
			rec.Set(name, Number(v))
		default:
			return nil, invalidDocument(path+"."+name, fmt.Sprintf("has unsupported type %T", raw))
		}
	}
	return rec, nil
}

// decodeMapping converts a decoded JSON object into plain Go values: integral
// numbers become int64, other numbers float64.
func decodeMapping(raw interface{}, path string) (map[string]interface{}, error) {
	if raw == nil {
		return map[string]interface{}{}, nil
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, invalidDocument(path, "must be an object")
	}
	out := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		nv, err := normalize(v, path+"."+k)
		if err != nil {
			return nil, err
		}
		out[k] = nv
	}
	return out, nil
}

func normalize(v interface{}, path string) (interface{}, error) {
	switch t := v.(type) {
	case jsonNumber:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			if n, err := t.Int64(); err == nil {
				return n, nil
			}
		}
		f, err := t.Float64()
		if err != nil {
			return nil, invalidDocument(path, "is not a valid number")
		}
		return f, nil
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			nv, err := normalize(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	case map[string]interface{}:
		return decodeMapping(t, path)
	default:
		return v, nil
	}
}

func decodeBounds(raw interface{}) (*geo.BoundingBox, error) {
	if raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, invalidDocument(KeyBounds, "must be an object")
	}
	if len(obj) == 0 {
		return nil, nil
	}

	var extrema [4]float64
	for i, key := range []string{"north", "south", "east", "west"} {
		n, ok := obj[key].(jsonNumber)
		if !ok {
			return nil, invalidDocument(KeyBounds+"."+key, "must be a number")
		}
		f, err := n.Float64()
		if err != nil {
			return nil, invalidDocument(KeyBounds+"."+key, "is not a valid number")
		}
		extrema[i] = f
	}
	return &geo.BoundingBox{North: extrema[0], South: extrema[1], East: extrema[2], West: extrema[3]}, nil
}

func invalidDocument(path, problem string) error {
	return domserrors.Newf(domserrors.ErrorTypeValidation, "execution document: %s %s", path, problem).
		WithDetail("path", path)
}
