// Package columnar writes and reads self-describing columnar datasets.
//
// A Dataset follows the netCDF data model used by oceanographic archives:
// global attributes, named variables, and one unlimited dimension per
// variable, with per-variable attributes such as units. All variables share a
// length, so position i of one variable lines up with position i of every
// other. Datasets are stored as Apache Arrow IPC files: global attributes
// become schema metadata, variables become columns of one record batch, and
// variable attributes become field metadata. Any Arrow reader can open the
// result without this package.
package columnar

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Format represents a columnar storage format
type Format string

const (
	// Arrow is the Apache Arrow IPC file format
	Arrow Format = "arrow"
)

// Compression selects the IPC body compression codec.
type Compression string

const (
	// CompressionNone writes uncompressed buffers
	CompressionNone Compression = "none"
	// CompressionLZ4 writes LZ4 frame compressed buffers
	CompressionLZ4 Compression = "lz4"
	// CompressionZstd writes zstd compressed buffers
	CompressionZstd Compression = "zstd"
)

// ParseCompression maps a configuration string to a Compression. The empty
// string means none.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionLZ4, CompressionZstd:
		return c, nil
	default:
		return "", fmt.Errorf("unsupported columnar compression: %s", s)
	}
}

// Metadata keys reserved by the format.
const (
	// DimensionKey names the dimension of a variable in its field metadata.
	DimensionKey = "dimension"
	// UnlimitedKey marks a dimension as unlimited in its field metadata.
	UnlimitedKey = "unlimited"
)

// FileExtension is the conventional extension of written datasets.
const FileExtension = ".arrow"

// MIMEType is the media type of written datasets.
const MIMEType = "application/vnd.apache.arrow.file"

// Attribute is a named scalar or list attached to a dataset or variable.
type Attribute struct {
	Name  string
	Value interface{}
}

// Variable is one named array of a dataset. Data is a []int32, []float32 or
// []float64.
type Variable struct {
	Name       string
	Dimension  string
	Data       interface{}
	Attributes []Attribute
}

// Len returns the number of elements of the variable, or -1 for an
// unsupported data type.
func (v *Variable) Len() int {
	switch d := v.Data.(type) {
	case []int32:
		return len(d)
	case []float32:
		return len(d)
	case []float64:
		return len(d)
	default:
		return -1
	}
}

// Attribute returns the variable attribute with the given name.
func (v *Variable) Attribute(name string) (interface{}, bool) {
	return findAttribute(v.Attributes, name)
}

// Dataset is an ordered set of global attributes and equal-length variables.
type Dataset struct {
	Attributes []Attribute
	Variables  []Variable
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{}
}

// SetAttribute sets a global attribute, replacing an existing one of the same
// name in place so attribute order is stable.
func (d *Dataset) SetAttribute(name string, value interface{}) {
	for i := range d.Attributes {
		if d.Attributes[i].Name == name {
			d.Attributes[i].Value = value
			return
		}
	}
	d.Attributes = append(d.Attributes, Attribute{Name: name, Value: value})
}

// Attribute returns the global attribute with the given name.
func (d *Dataset) Attribute(name string) (interface{}, bool) {
	return findAttribute(d.Attributes, name)
}

// AddVariable appends a variable. Its data type must be supported, its name
// unique, and its length equal to that of the variables already added.
func (d *Dataset) AddVariable(v Variable) error {
	n := v.Len()
	if n < 0 {
		return fmt.Errorf("variable %s: unsupported data type %T", v.Name, v.Data)
	}
	if v.Dimension == "" {
		v.Dimension = v.Name
	}
	for i := range d.Variables {
		if d.Variables[i].Name == v.Name {
			return fmt.Errorf("variable %s already exists", v.Name)
		}
	}
	if rows := d.Rows(); len(d.Variables) > 0 && rows != n {
		return fmt.Errorf("variable %s has length %d, dataset has %d", v.Name, n, rows)
	}
	d.Variables = append(d.Variables, v)
	return nil
}

// Variable returns the named variable.
func (d *Dataset) Variable(name string) (*Variable, bool) {
	for i := range d.Variables {
		if d.Variables[i].Name == name {
			return &d.Variables[i], true
		}
	}
	return nil, false
}

// Rows returns the shared length of the variables.
func (d *Dataset) Rows() int {
	if len(d.Variables) == 0 {
		return 0
	}
	return d.Variables[0].Len()
}

func findAttribute(attrs []Attribute, name string) (interface{}, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// FormatAttribute renders an attribute value as metadata text. Lists of
// strings are joined with ", ".
func FormatAttribute(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case bool:
		return strconv.FormatBool(v), nil
	case []string:
		return strings.Join(v, ", "), nil
	case time.Time:
		return v.UTC().Format(time.RFC3339), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("unsupported attribute type %T", value)
	}
}

// attributeMetadata renders attributes to parallel key and value lists.
func attributeMetadata(attrs []Attribute) (keys, values []string, err error) {
	keys = make([]string, 0, len(attrs))
	values = make([]string, 0, len(attrs))
	for _, a := range attrs {
		s, ferr := FormatAttribute(a.Value)
		if ferr != nil {
			return nil, nil, fmt.Errorf("attribute %s: %w", a.Name, ferr)
		}
		keys = append(keys, a.Name)
		values = append(values, s)
	}
	return keys, values, nil
}

// Statistics summarizes a dataset.
type Statistics struct {
	RowCount      int
	ColumnCount   int
	NaNCounts     map[string]int
	AttributeKeys []string
}

// Stats computes summary statistics of the dataset.
func (d *Dataset) Stats() *Statistics {
	s := &Statistics{
		RowCount:    d.Rows(),
		ColumnCount: len(d.Variables),
		NaNCounts:   make(map[string]int, len(d.Variables)),
	}
	for _, a := range d.Attributes {
		s.AttributeKeys = append(s.AttributeKeys, a.Name)
	}
	sort.Strings(s.AttributeKeys)

	for _, v := range d.Variables {
		n := 0
		switch data := v.Data.(type) {
		case []float32:
			for _, f := range data {
				if f != f {
					n++
				}
			}
		case []float64:
			for _, f := range data {
				if f != f {
					n++
				}
			}
		}
		s.NaNCounts[v.Name] = n
	}
	return s
}
