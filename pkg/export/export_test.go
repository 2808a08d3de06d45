package export

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/doms/pkg/domserrors"
	"github.com/ajitpratap0/doms/pkg/formats/columnar"
	"github.com/ajitpratap0/doms/pkg/geo"
	jsonpool "github.com/ajitpratap0/doms/pkg/json"
	"github.com/ajitpratap0/doms/pkg/matchup"
)

const stagingDir = "/staging"

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func testParams() matchup.Params {
	return matchup.Params{
		matchup.ParamTimeTolerance:   int64(86400),
		matchup.ParamStartTime:       int64(1451606400000),
		matchup.ParamEndTime:         int64(1454284799000),
		matchup.ParamDepthTolerance:  5.0,
		matchup.ParamPlatforms:       "1,2,3",
		matchup.ParamRadiusTolerance: 1000.5,
		matchup.ParamBoundingBox:     "-45,15,-30,30",
		matchup.ParamPrimary:         "MUR-JPL-L4-GLOB-v4.1",
		matchup.ParamMatchup:         []interface{}{"spurs", "icoads"},
	}
}

func testDetails() matchup.Details {
	return matchup.Details{
		matchup.DetailTimeToComplete:    int64(26),
		matchup.DetailNumInSituMatched:  int64(2),
		matchup.DetailNumGriddedChecked: int64(10),
		matchup.DetailNumGriddedMatched: int64(1),
		matchup.DetailNumInSituChecked:  int64(30),
	}
}

func testExecution() *matchup.Execution {
	primary := matchup.NewRecord().
		Set("x", matchup.Number(-40.5)).
		Set("y", matchup.Number(20.25)).
		Set("sea_water_temperature", matchup.Number(27.5)).
		Set("time", matchup.Time(time.Unix(1451610000, 0).UTC())).
		AddMatch(
			matchup.NewRecord().
				Set("x", matchup.Number(-40.4)).
				Set("y", matchup.Number(20.2)).
				Set("sea_water_salinity", matchup.Number(35.1)).
				Set("sea_water_salinity_depth", matchup.Number(2)),
			matchup.NewRecord().
				Set("x", matchup.Number(-40.6)).
				Set("wind_speed", matchup.Number(math.NaN())),
		)
	return &matchup.Execution{
		ID:      "b2c1f6a2-5a8e-4d7c-9d7a-2b7e0c3d4f51",
		Tree:    matchup.Tree{primary, matchup.NewRecord().Set("y", matchup.Number(21))},
		Params:  testParams(),
		Details: testDetails(),
		Count:   -1,
	}
}

func newTestExporter(t *testing.T, fs afero.Fs) *Exporter {
	return NewExporter(
		WithFs(fs),
		WithStagingDir(stagingDir),
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(zaptest.NewLogger(t)),
	)
}

func stagedFiles(t *testing.T, fs afero.Fs) []string {
	matches, err := afero.Glob(fs, stagingDir+"/*")
	require.NoError(t, err)
	return matches
}

func TestJSONPayloadShape(t *testing.T) {
	x := newTestExporter(t, afero.NewMemMapFs())
	out, err := x.Results(testExecution()).ToJSON()
	require.NoError(t, err)

	last := -1
	for _, key := range []string{"executionId", "data", "params", "bounds", "count", "details"} {
		pos := strings.Index(out, "\n    \""+key+"\": ")
		require.GreaterOrEqual(t, pos, 0, "missing top level key %s", key)
		assert.Greater(t, pos, last, "key %s out of order", key)
		last = pos
	}

	var doc map[string]interface{}
	require.NoError(t, jsonpool.Unmarshal([]byte(out), &doc))
	assert.Equal(t, map[string]interface{}{}, doc["bounds"])
	assert.Equal(t, float64(2), doc["count"])

	data := doc["data"].([]interface{})
	require.Len(t, data, 2)
	first := data[0].(map[string]interface{})
	assert.Len(t, first["matches"], 2)
	assert.Equal(t, float64(1451610000), first["time"])
	_, hasMatches := data[1].(map[string]interface{})["matches"]
	assert.False(t, hasMatches)
}

func TestJSONBoundsAndCount(t *testing.T) {
	exec := testExecution()
	exec.Bounds = &geo.BoundingBox{North: 30, South: 15, East: -30, West: -45}
	exec.Count = 17

	out, err := NewExporter().JSON(exec)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, jsonpool.Unmarshal([]byte(out), &doc))
	assert.Equal(t, map[string]interface{}{
		"north": float64(30), "south": float64(15), "east": float64(-30), "west": float64(-45),
	}, doc["bounds"])
	assert.Equal(t, float64(17), doc["count"])
}

// Scenario D
func TestJSONNaNBecomesNull(t *testing.T) {
	exec := testExecution()
	exec.Details["ratio"] = math.Inf(1)

	out, err := NewExporter().JSON(exec)
	require.NoError(t, err)
	assert.NotContains(t, out, "NaN")
	assert.NotContains(t, out, "Inf")
	assert.Contains(t, out, `"wind_speed": null`)
	assert.Contains(t, out, `"ratio": null`)

	var doc map[string]interface{}
	require.NoError(t, jsonpool.Unmarshal([]byte(out), &doc), "output must be strict JSON")
}

func TestEpochSecondsTruncates(t *testing.T) {
	cases := []struct {
		in   time.Time
		want int64
	}{
		{time.Unix(100, 999999999), 100},
		{time.Unix(0, 0), 0},
		{time.Unix(-2, 500000000), -1},
		{time.Unix(-2, 0), -2},
		{time.Date(2016, 1, 1, 0, 0, 0, 0, time.FixedZone("EST", -5*3600)), 1451624400},
	}
	for _, c := range cases {
		got, ok := EpochSeconds(c.in)
		require.True(t, ok)
		assert.Equal(t, c.want, got, c.in.String())
	}

	_, ok := EpochSeconds("2016-01-01")
	assert.False(t, ok)
}

func TestJSONUnknownTypeFails(t *testing.T) {
	exec := testExecution()
	exec.Params["callback"] = struct{ URL string }{"http://example.com"}

	out, err := NewExporter().JSON(exec)
	require.Error(t, err)
	assert.Empty(t, out)
	assert.True(t, domserrors.IsEncoding(err))
}

func TestCustomTransformers(t *testing.T) {
	asText := func(v interface{}) (interface{}, bool) {
		if t, ok := v.(time.Time); ok {
			return t.UTC().Format(time.RFC3339), true
		}
		return nil, false
	}
	exec := &matchup.Execution{
		ID:   "x",
		Tree: matchup.Tree{matchup.NewRecord().Set("time", matchup.Time(time.Unix(0, 0)))},
	}

	out, err := NewExporter(WithTransformers(asText, NonFiniteAsNull)).JSON(exec)
	require.NoError(t, err)
	assert.Contains(t, out, `"time": "1970-01-01T00:00:00Z"`)
}

func TestColumnarDataset(t *testing.T) {
	fs := afero.NewMemMapFs()
	x := newTestExporter(t, fs)

	data, err := x.Results(testExecution()).ToColumnar()
	require.NoError(t, err)
	assert.Empty(t, stagedFiles(t, fs))

	ds, err := columnar.Read(bytes.NewReader(data))
	require.NoError(t, err)

	attrs := map[string]interface{}{
		"matchID":                  "b2c1f6a2-5a8e-4d7c-9d7a-2b7e0c3d4f51",
		"Matchup_TimeWindow":       "86400",
		"Matchup_TimeWindow_Units": "hours",
		"time_coverage_start":      "20160101 00:00:00",
		"time_coverage_end":        "20160131 23:59:59",
		"depth_tolerance":          "5",
		"platforms":                "1,2,3",
		"Matchup_SearchRadius":     "1000.5",
		"bounding_box":             "-45,15,-30,30",
		"primary":                  "MUR-JPL-L4-GLOB-v4.1",
		"secondary":                "spurs,icoads",
		"Matchup_ParameterPrimary": "",
		"geospatial_lat_max":       "30",
		"geospatial_lat_min":       "15",
		"geospatial_lon_max":       "-30",
		"geospatial_lon_min":       "-45",
		"geospatial_vertical_min":  "0",
		"geospatial_vertical_max":  "1000.5",
		"time_to_complete":         "26",
		"num_insitu_matched":       "2",
		"num_gridded_checked":      "10",
		"num_gridded_matched":      "1",
		"num_insitu_checked":       "30",
		"date_created":             "20240506 07:08:09",
		"date_modified":            "20240506 07:08:09",
		"bnds":                     "2",
		"standard_name_vocabulary": "CF Standard Name Table v27, BODC controlled vocabulary",
	}
	for name, want := range attrs {
		got, ok := ds.Attribute(name)
		if assert.True(t, ok, "missing attribute %s", name) {
			assert.Equal(t, want, got, name)
		}
	}

	wantVars := []string{VarID, VarPrimaryID}
	for _, fv := range FieldVariables {
		wantVars = append(wantVars, fv.Name)
	}
	require.Len(t, ds.Variables, len(wantVars))
	for i, name := range wantVars {
		assert.Equal(t, name, ds.Variables[i].Name)
		assert.Equal(t, 4, ds.Variables[i].Len(), "variable %s is not aligned", name)
	}

	id, _ := ds.Variable(VarID)
	parent, _ := ds.Variable(VarPrimaryID)
	assert.Equal(t, []int32{0, 1, 2, 3}, id.Data)
	assert.Equal(t, []int32{-1, 0, 0, -1}, parent.Data)

	lat, _ := ds.Variable("lat")
	latData := lat.Data.([]float32)
	assert.Equal(t, []float32{20.25, 20.2}, latData[:2])
	assert.True(t, math.IsNaN(float64(latData[2])))
	assert.Equal(t, float32(21), latData[3])

	salinity, _ := ds.Variable("sea_water_salinity")
	salData := salinity.Data.([]float32)
	assert.Equal(t, float32(35.1), salData[1])
	assert.True(t, math.IsNaN(float64(salData[0])))

	tm, _ := ds.Variable("time")
	tmData := tm.Data.([]float64)
	assert.Equal(t, 1451610000.0, tmData[0])
	assert.True(t, math.IsNaN(tmData[1]))
}

// Scenario B
func TestColumnarEmptyTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	exec := testExecution()
	exec.Tree = matchup.Tree{}

	data, err := newTestExporter(t, fs).Columnar(exec)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Empty(t, stagedFiles(t, fs))

	ds, err := columnar.Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Rows())
	assert.Len(t, ds.Variables, 2+len(FieldVariables))
}

// Scenario C
func TestColumnarMissingStartTime(t *testing.T) {
	fs := afero.NewMemMapFs()
	exec := testExecution()
	delete(exec.Params, matchup.ParamStartTime)

	data, err := newTestExporter(t, fs).Columnar(exec)
	require.Error(t, err)
	assert.Nil(t, data)
	assert.True(t, domserrors.IsMissingParameter(err))
	key, ok := domserrors.ParameterKey(err)
	require.True(t, ok)
	assert.Equal(t, matchup.ParamStartTime, key)
	assert.Empty(t, stagedFiles(t, fs))
}

func TestColumnarMissingKeys(t *testing.T) {
	keys := []string{
		matchup.ParamTimeTolerance, matchup.ParamEndTime, matchup.ParamDepthTolerance,
		matchup.ParamPlatforms, matchup.ParamRadiusTolerance, matchup.ParamBoundingBox,
		matchup.ParamPrimary, matchup.ParamMatchup,
	}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			exec := testExecution()
			delete(exec.Params, key)
			_, err := NewExporter(WithFs(afero.NewMemMapFs())).Columnar(exec)
			got, _ := domserrors.ParameterKey(err)
			assert.Equal(t, key, got)
		})
	}

	exec := testExecution()
	delete(exec.Details, matchup.DetailNumInSituChecked)
	_, err := NewExporter(WithFs(afero.NewMemMapFs())).Columnar(exec)
	assert.True(t, domserrors.IsMissingParameter(err))
}

func TestColumnarOptionalParameter(t *testing.T) {
	exec := testExecution()
	exec.Params[matchup.ParamParameter] = "sst"

	data, err := NewExporter(WithFs(afero.NewMemMapFs()), WithClock(func() time.Time { return fixedNow })).Columnar(exec)
	require.NoError(t, err)
	ds, err := columnar.Read(bytes.NewReader(data))
	require.NoError(t, err)
	got, _ := ds.Attribute("Matchup_ParameterPrimary")
	assert.Equal(t, "sst", got)
}

func TestColumnarMalformedBoundingBox(t *testing.T) {
	fs := afero.NewMemMapFs()
	exec := testExecution()
	exec.Params[matchup.ParamBoundingBox] = "-45,15,-30"

	_, err := newTestExporter(t, fs).Columnar(exec)
	assert.True(t, domserrors.IsMalformedBoundingBox(err))
	assert.Empty(t, stagedFiles(t, fs))
}

func TestColumnarCleansUpOnWriteFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	x := newTestExporter(t, fs)

	var staged string
	x.write = func(w io.Writer, _ *columnar.Dataset, _ *columnar.WriterConfig) error {
		staged = w.(afero.File).Name()
		_, _ = w.Write([]byte("partial"))
		return errors.New("disk full")
	}

	data, err := x.Columnar(testExecution())
	require.Error(t, err)
	assert.Nil(t, data)
	assert.True(t, domserrors.IsEncoding(err))
	assert.NotEmpty(t, staged)

	exists, err := afero.Exists(fs, staged)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, stagedFiles(t, fs))
}

func TestColumnarStagingUnavailable(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())

	_, err := newTestExporter(t, fs).Columnar(testExecution())
	require.Error(t, err)
	assert.True(t, domserrors.IsType(err, domserrors.ErrorTypeFile))
}

func TestColumnarCompression(t *testing.T) {
	exec := testExecution()
	data, err := NewExporter(
		WithFs(afero.NewMemMapFs()),
		WithCompression(columnar.CompressionZstd),
	).Columnar(exec)
	require.NoError(t, err)

	ds, err := columnar.Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 4, ds.Rows())
}

func TestConcurrentExports(t *testing.T) {
	fs := afero.NewMemMapFs()
	x := newTestExporter(t, fs)
	exec := testExecution()

	want, err := x.Columnar(exec)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = x.Columnar(exec)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, want, results[i])
	}
	assert.Empty(t, stagedFiles(t, fs))
}

// Scenario E
func TestCSVNotImplemented(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := newTestExporter(t, fs).Results(testExecution())

	data, err := r.ToCSV()
	assert.Nil(t, data)
	assert.True(t, domserrors.IsNotImplemented(err))

	data, err = r.Export(FormatCSV)
	assert.Nil(t, data)
	assert.True(t, domserrors.IsNotImplemented(err))
	assert.Empty(t, stagedFiles(t, fs))
}

func TestExportDispatch(t *testing.T) {
	r := newTestExporter(t, afero.NewMemMapFs()).Results(testExecution())

	data, err := r.Export(FormatJSON)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("{\n    \"executionId\"")))

	data, err = r.Export(FormatColumnar)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = r.Export(Format("xml"))
	assert.True(t, domserrors.IsType(err, domserrors.ErrorTypeValidation))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"JSON":    FormatJSON,
		"netcdf":  FormatColumnar,
		" arrow ": FormatColumnar,
		"csv":     FormatCSV,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)

	formats := Formats()
	require.Len(t, formats, 3)
	assert.Equal(t, FormatColumnar, formats[0].Format)
	info, ok := FormatCSV.Info()
	require.True(t, ok)
	assert.False(t, info.Implemented)
}
