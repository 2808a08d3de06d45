// Package matchup provides the in-memory model of a matchup result set: a tree
// of primary observations, each owning the secondary observations matched
// against it, plus the run parameters and execution details that produced it.
//
// Records are schemaless. Any record may lack any field, and absence is a
// first-class state distinct from every value:
//
//	rec := matchup.NewRecord().
//	    Set("x", matchup.Number(-45.2)).
//	    Set("y", matchup.Number(22.8)).
//	    AddMatch(matchup.NewRecord().Set("sea_water_temperature", matchup.Number(27.1)))
//
//	if v, ok := rec.Get("wind_speed"); ok {
//	    ...
//	}
//
// The engine never mutates a tree it is handed; callers must not mutate one
// while an export over it is running.
package matchup

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// Kind identifies the type held by a Value.
type Kind uint8

const (
	// KindNumber is a float64 value; NaN is a legal number.
	KindNumber Kind = iota + 1
	// KindString is a string value.
	KindString
	// KindTime is a point in time.
	KindTime
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	default:
		return "invalid"
	}
}

// Value is a tagged scalar field value. The zero Value is invalid and is never
// stored in a Record.
type Value struct {
	kind Kind
	num  float64
	str  string
	ts   time.Time
}

// Number returns a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Time returns a timestamp Value.
func Time(t time.Time) Value { return Value{kind: KindTime, ts: t} }

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// Valid reports whether v was built by one of the constructors.
func (v Value) Valid() bool { return v.kind != 0 }

// Num returns the numeric payload; ok is false for other kinds.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Str returns the string payload; ok is false for other kinds.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Time returns the timestamp payload; ok is false for other kinds.
func (v Value) Time() (time.Time, bool) { return v.ts, v.kind == KindTime }

// Float64 converts the value to a float for columnar projection. Times become
// fractional seconds since the Unix epoch, numeric strings are parsed, and
// anything else is NaN.
func (v Value) Float64() float64 {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindTime:
		return float64(v.ts.UnixNano()) / float64(time.Second)
	case KindString:
		f, err := strconv.ParseFloat(v.str, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// Interface returns the payload as a plain Go value (float64, string or
// time.Time), or nil for an invalid Value.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindTime:
		return v.ts
	default:
		return nil
	}
}

// Equal reports whether two values have the same kind and payload. NaN equals
// NaN so that trees compare structurally.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num || (math.IsNaN(v.num) && math.IsNaN(o.num))
	case KindString:
		return v.str == o.str
	case KindTime:
		return v.ts.Equal(o.ts)
	default:
		return true
	}
}

// Record is one observation: a set of named scalar fields plus the ordered
// records matched against it. A Record owns its matches exclusively.
type Record struct {
	fields map[string]Value

	// Matches holds the child records. nil means the record carries no
	// matches at all; an empty non-nil slice is preserved as an empty list.
	Matches []*Record
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{fields: make(map[string]Value)}
}

// Set stores a field and returns the record for chaining. Invalid values are
// ignored, so a field is either present with a real value or absent.
func (r *Record) Set(name string, v Value) *Record {
	if !v.Valid() {
		return r
	}
	if r.fields == nil {
		r.fields = make(map[string]Value)
	}
	r.fields[name] = v
	return r
}

// Delete removes a field.
func (r *Record) Delete(name string) *Record {
	delete(r.fields, name)
	return r
}

// Get returns the named field and whether it is present.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Has reports whether the named field is present.
func (r *Record) Has(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.fields) }

// FieldNames returns the field names in sorted order.
func (r *Record) FieldNames() []string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddMatch appends child records and returns the parent for chaining.
func (r *Record) AddMatch(children ...*Record) *Record {
	if r.Matches == nil {
		r.Matches = make([]*Record, 0, len(children))
	}
	r.Matches = append(r.Matches, children...)
	return r
}

// HasMatches reports whether the record has at least one child.
func (r *Record) HasMatches() bool { return len(r.Matches) > 0 }

// Equal compares two records field by field and recursively through their
// matches. A nil and an empty matches list are distinct.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if len(r.fields) != len(o.fields) {
		return false
	}
	for name, v := range r.fields {
		ov, ok := o.fields[name]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	if (r.Matches == nil) != (o.Matches == nil) {
		return false
	}
	return Tree(r.Matches).Equal(Tree(o.Matches))
}

// Tree is the ordered sequence of primary records of one result set.
type Tree []*Record

// Size returns the number of records in the tree, primaries and all
// descendants combined.
func (t Tree) Size() int {
	n := 0
	for _, r := range t {
		n += 1 + Tree(r.Matches).Size()
	}
	return n
}

// Depth returns the number of levels in the tree; an empty tree has depth 0.
func (t Tree) Depth() int {
	depth := 0
	for _, r := range t {
		if d := 1 + Tree(r.Matches).Depth(); d > depth {
			depth = d
		}
	}
	return depth
}

// Equal reports whether two trees have the same shape and field values.
func (t Tree) Equal(o Tree) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if !t[i].Equal(o[i]) {
			return false
		}
	}
	return true
}
