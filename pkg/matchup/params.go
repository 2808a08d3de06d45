package matchup

import (
	"strconv"
	"strings"

	"github.com/ajitpratap0/doms/pkg/domserrors"
	"github.com/ajitpratap0/doms/pkg/geo"
)

// Run parameter keys.
const (
	ParamTimeTolerance   = "timeTolerance"
	ParamDepthTolerance  = "depthTolerance"
	ParamPlatforms       = "platforms"
	ParamRadiusTolerance = "radiusTolerance"
	ParamBoundingBox     = "bbox"
	ParamPrimary         = "primary"
	ParamMatchup         = "matchup"
	ParamParameter       = "parameter"
	ParamStartTime       = "startTime"
	ParamEndTime         = "endTime"
)

// Execution detail keys.
const (
	DetailTimeToComplete    = "timeToComplete"
	DetailNumInSituMatched  = "numInSituMatched"
	DetailNumGriddedChecked = "numGriddedChecked"
	DetailNumGriddedMatched = "numGriddedMatched"
	DetailNumInSituChecked  = "numInSituChecked"
)

// Params holds the query inputs of a matchup run. It is read-only to the
// engine. Values are plain Go scalars or slices as produced by the decoder.
type Params map[string]interface{}

// Details holds execution statistics of a matchup run.
type Details map[string]interface{}

// Has reports whether key is present.
func (p Params) Has(key string) bool { return has(p, key) }

// Value returns the raw value for key.
func (p Params) Value(key string) (interface{}, error) { return value(p, key) }

// String returns key as a string. Numbers are formatted.
func (p Params) String(key string) (string, error) { return stringValue(p, key) }

// Float64 returns key as a float.
func (p Params) Float64(key string) (float64, error) { return floatValue(p, key) }

// Int64 returns key as an integer.
func (p Params) Int64(key string) (int64, error) { return intValue(p, key) }

// Strings returns key as a list of strings. A single string is split on
// commas.
func (p Params) Strings(key string) ([]string, error) {
	v, err := value(p, key)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case []string:
		return t, nil
	case string:
		if t == "" {
			return []string{}, nil
		}
		parts := strings.Split(t, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, domserrors.InvalidParameter(key, v, "list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, domserrors.InvalidParameter(key, v, "list of strings")
	}
}

// BoundingBox parses the bbox parameter.
func (p Params) BoundingBox() (geo.BoundingBox, error) {
	s, err := p.String(ParamBoundingBox)
	if err != nil {
		return geo.BoundingBox{}, err
	}
	return geo.ParseBoundingBox(s)
}

// Has reports whether key is present.
func (d Details) Has(key string) bool { return has(d, key) }

// Value returns the raw value for key.
func (d Details) Value(key string) (interface{}, error) { return value(d, key) }

// Float64 returns key as a float.
func (d Details) Float64(key string) (float64, error) { return floatValue(d, key) }

// Int64 returns key as an integer.
func (d Details) Int64(key string) (int64, error) { return intValue(d, key) }

func has(m map[string]interface{}, key string) bool {
	_, ok := m[key]
	return ok
}

func value(m map[string]interface{}, key string) (interface{}, error) {
	v, ok := m[key]
	if !ok {
		return nil, domserrors.MissingParameter(key)
	}
	return v, nil
}

func stringValue(m map[string]interface{}, key string) (string, error) {
	v, err := value(m, key)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case int:
		return strconv.Itoa(t), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", domserrors.InvalidParameter(key, v, "string")
	}
}

func floatValue(m map[string]interface{}, key string) (float64, error) {
	v, err := value(m, key)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	case string:
		f, perr := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if perr != nil {
			return 0, domserrors.InvalidParameter(key, v, "number")
		}
		return f, nil
	default:
		return 0, domserrors.InvalidParameter(key, v, "number")
	}
}

func intValue(m map[string]interface{}, key string) (int64, error) {
	v, err := value(m, key)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		if t != float64(int64(t)) {
			return 0, domserrors.InvalidParameter(key, v, "integer")
		}
		return int64(t), nil
	case string:
		n, perr := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if perr != nil {
			return 0, domserrors.InvalidParameter(key, v, "integer")
		}
		return n, nil
	default:
		return 0, domserrors.InvalidParameter(key, v, "integer")
	}
}

// Execution bundles everything one export call consumes.
type Execution struct {
	// ID identifies the matchup run.
	ID string
	// Tree is the result set.
	Tree Tree
	// Params are the run parameters.
	Params Params
	// Details are the execution statistics.
	Details Details
	// Bounds is the search area, nil when the run had none.
	Bounds *geo.BoundingBox
	// Count is the reported number of results; when negative the number of
	// primary records is used.
	Count int
}

// ResultCount returns Count, or the number of primaries when Count is
// negative.
func (e *Execution) ResultCount() int {
	if e.Count < 0 {
		return len(e.Tree)
	}
	return e.Count
}
