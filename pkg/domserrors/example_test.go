// Package domserrors provides examples of structured error handling in DOMS.
package domserrors_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/doms/pkg/domserrors"
)

// Example demonstrates basic error creation with context.
func Example() {
	err := domserrors.New(domserrors.ErrorTypeConnection, "failed to connect to results store").
		WithDetail("host", "localhost").
		WithDetail("port", 5432)

	fmt.Println(err.Error())

	// Output:
	// connection: failed to connect to results store
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := domserrors.Wrap(io.EOF, domserrors.ErrorTypeFile, "failed to read staging file").
		WithDetail("file", "doms_123.arrow")

	if domserrors.IsType(err, domserrors.ErrorTypeFile) {
		fmt.Println("This is a file error")
	}
	if errors.Is(err, io.EOF) {
		fmt.Println("Original error was EOF")
	}

	// Output:
	// This is a file error
	// Original error was EOF
}

// ExampleMissingParameter shows how callers recover the offending key.
func ExampleMissingParameter() {
	err := fmt.Errorf("export: %w", domserrors.MissingParameter("startTime"))

	if domserrors.IsMissingParameter(err) {
		key, _ := domserrors.ParameterKey(err)
		fmt.Println("missing:", key)
	}

	// Output:
	// missing: startTime
}

func TestDomainConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		text  string
	}{
		{"missing parameter", domserrors.MissingParameter("bbox"), domserrors.IsMissingParameter, `missing_parameter: missing required parameter "bbox"`},
		{"encoding", domserrors.Encoding(struct{}{}), domserrors.IsEncoding, "encoding: cannot encode value of type struct {}"},
		{"bbox", domserrors.MalformedBoundingBox("1,2", nil), domserrors.IsMalformedBoundingBox, `malformed_bbox: malformed bounding box "1,2"`},
		{"not implemented", domserrors.NotImplemented("csv export"), domserrors.IsNotImplemented, "not_implemented: csv export is not implemented"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.Equal(t, tt.text, tt.err.Error())
			assert.False(t, domserrors.IsRetryable(tt.err))
		})
	}
}

func TestStackPointsAtCaller(t *testing.T) {
	err := domserrors.MissingParameter("startTime")
	require.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Stack[0].Function, "TestStackPointsAtCaller")
}

func TestWrapPreservesStack(t *testing.T) {
	inner := domserrors.New(domserrors.ErrorTypeConnection, "dial failed")
	outer := domserrors.Wrap(inner, domserrors.ErrorTypeTimeout, "store unavailable")

	assert.Equal(t, inner.Stack, outer.Stack)
	assert.True(t, domserrors.IsRetryable(outer))
	assert.Nil(t, domserrors.Wrap(nil, domserrors.ErrorTypeFile, "unused"))

	_, ok := domserrors.ParameterKey(io.EOF)
	assert.False(t, ok)
}
