package export

import (
	"sort"
	"strings"

	"github.com/ajitpratap0/doms/pkg/domserrors"
	"github.com/ajitpratap0/doms/pkg/formats/columnar"
)

// Format identifies an export output format.
type Format string

const (
	// FormatJSON is the nested structured text document.
	FormatJSON Format = "json"
	// FormatColumnar is the self-describing columnar binary dataset.
	FormatColumnar Format = "columnar"
	// FormatCSV is row-delimited text. It is declared but not implemented.
	FormatCSV Format = "csv"
)

// FormatInfo describes an export format.
type FormatInfo struct {
	Format      Format
	Extension   string
	MIMEType    string
	Binary      bool
	Implemented bool
}

var formatRegistry = map[Format]FormatInfo{
	FormatJSON: {
		Format:      FormatJSON,
		Extension:   ".json",
		MIMEType:    "application/json",
		Implemented: true,
	},
	FormatColumnar: {
		Format:      FormatColumnar,
		Extension:   columnar.FileExtension,
		MIMEType:    columnar.MIMEType,
		Binary:      true,
		Implemented: true,
	},
	FormatCSV: {
		Format:    FormatCSV,
		Extension: ".csv",
		MIMEType:  "text/csv",
	},
}

// formatAliases maps accepted request spellings to formats.
var formatAliases = map[string]Format{
	"json":     FormatJSON,
	"columnar": FormatColumnar,
	"netcdf":   FormatColumnar,
	"arrow":    FormatColumnar,
	"csv":      FormatCSV,
}

// ParseFormat resolves a case-insensitive format name.
func ParseFormat(name string) (Format, error) {
	f, ok := formatAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", domserrors.Newf(domserrors.ErrorTypeValidation, "unknown output format %q", name).
			WithDetail(domserrors.DetailValue, name)
	}
	return f, nil
}

// Info returns the description of f.
func (f Format) Info() (FormatInfo, bool) {
	info, ok := formatRegistry[f]
	return info, ok
}

// Formats lists every declared format, sorted by name.
func Formats() []FormatInfo {
	out := make([]FormatInfo, 0, len(formatRegistry))
	for _, info := range formatRegistry {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Format < out[j].Format })
	return out
}
