package columnar

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// WriterConfig configures dataset writers
type WriterConfig struct {
	Compression Compression
	Allocator   memory.Allocator
}

// DefaultWriterConfig returns default writer configuration
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		Compression: CompressionNone,
		Allocator:   memory.NewGoAllocator(),
	}
}

// Write encodes the dataset as an Arrow IPC file into w.
func Write(w io.Writer, ds *Dataset, config *WriterConfig) error {
	if config == nil {
		config = DefaultWriterConfig()
	}
	mem := config.Allocator
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	keys, values, err := attributeMetadata(ds.Attributes)
	if err != nil {
		return err
	}
	schemaMeta := arrow.NewMetadata(keys, values)

	fields := make([]arrow.Field, 0, len(ds.Variables))
	cols := make([]arrow.Array, 0, len(ds.Variables))
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	for i := range ds.Variables {
		v := &ds.Variables[i]
		field, col, err := buildColumn(mem, v)
		if err != nil {
			return err
		}
		fields = append(fields, field)
		cols = append(cols, col)
	}

	schema := arrow.NewSchema(fields, &schemaMeta)
	record := array.NewRecord(schema, cols, int64(ds.Rows()))
	defer record.Release()

	opts := []ipc.Option{ipc.WithSchema(schema), ipc.WithAllocator(mem)}
	switch config.Compression {
	case CompressionLZ4:
		opts = append(opts, ipc.WithLZ4())
	case CompressionZstd:
		opts = append(opts, ipc.WithZstd())
	}

	fw, err := ipc.NewFileWriter(w, opts...)
	if err != nil {
		return fmt.Errorf("failed to create Arrow writer: %w", err)
	}
	if err := fw.Write(record); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close Arrow writer: %w", err)
	}
	return nil
}

func buildColumn(mem memory.Allocator, v *Variable) (arrow.Field, arrow.Array, error) {
	attrs := append([]Attribute{
		{Name: DimensionKey, Value: v.Dimension},
		{Name: UnlimitedKey, Value: true},
	}, v.Attributes...)
	keys, values, err := attributeMetadata(attrs)
	if err != nil {
		return arrow.Field{}, nil, fmt.Errorf("variable %s: %w", v.Name, err)
	}
	field := arrow.Field{Name: v.Name, Metadata: arrow.NewMetadata(keys, values)}

	switch data := v.Data.(type) {
	case []int32:
		b := array.NewInt32Builder(mem)
		defer b.Release()
		b.AppendValues(data, nil)
		field.Type = arrow.PrimitiveTypes.Int32
		return field, b.NewArray(), nil
	case []float32:
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		b.AppendValues(data, nil)
		field.Type = arrow.PrimitiveTypes.Float32
		return field, b.NewArray(), nil
	case []float64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.AppendValues(data, nil)
		field.Type = arrow.PrimitiveTypes.Float64
		return field, b.NewArray(), nil
	default:
		return arrow.Field{}, nil, fmt.Errorf("variable %s: unsupported data type %T", v.Name, v.Data)
	}
}

// Read decodes an Arrow IPC file written by Write. Attribute values are
// returned as their metadata text.
func Read(r ipc.ReadAtSeeker) (*Dataset, error) {
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow reader: %w", err)
	}
	defer fr.Close()

	schema := fr.Schema()
	ds := NewDataset()
	md := schema.Metadata()
	for i, k := range md.Keys() {
		ds.Attributes = append(ds.Attributes, Attribute{Name: k, Value: md.Values()[i]})
	}

	for _, f := range schema.Fields() {
		v := Variable{Name: f.Name, Dimension: f.Name}
		for i, k := range f.Metadata.Keys() {
			val := f.Metadata.Values()[i]
			switch k {
			case DimensionKey:
				v.Dimension = val
			case UnlimitedKey:
			default:
				v.Attributes = append(v.Attributes, Attribute{Name: k, Value: val})
			}
		}
		switch f.Type.ID() {
		case arrow.INT32:
			v.Data = []int32{}
		case arrow.FLOAT32:
			v.Data = []float32{}
		case arrow.FLOAT64:
			v.Data = []float64{}
		default:
			return nil, fmt.Errorf("variable %s: unsupported Arrow type %s", f.Name, f.Type)
		}
		ds.Variables = append(ds.Variables, v)
	}

	for batch := 0; batch < fr.NumRecords(); batch++ {
		rec, err := fr.Record(batch)
		if err != nil {
			return nil, fmt.Errorf("failed to read record batch %d: %w", batch, err)
		}
		for i := range ds.Variables {
			v := &ds.Variables[i]
			switch col := rec.Column(i).(type) {
			case *array.Int32:
				v.Data = append(v.Data.([]int32), col.Int32Values()...)
			case *array.Float32:
				v.Data = append(v.Data.([]float32), col.Float32Values()...)
			case *array.Float64:
				v.Data = append(v.Data.([]float64), col.Float64Values()...)
			}
		}
	}

	return ds, nil
}
