package store

import (
	"math"
	"strings"
	"time"

	"github.com/ajitpratap0/doms/pkg/domserrors"
	jsonpool "github.com/ajitpratap0/doms/pkg/json"
	"github.com/ajitpratap0/doms/pkg/matchup"
)

// Record field names filled from the fixed data columns.
const (
	FieldID       = "id"
	FieldX        = "x"
	FieldY        = "y"
	FieldTime     = "time"
	FieldSource   = "source"
	FieldPlatform = "platform"
	FieldDevice   = "device"
)

// ExecutionRow is a row of doms_executions.
type ExecutionRow struct {
	ID            string
	TimeStarted   time.Time
	TimeCompleted *time.Time
}

// ParamsRow is a row of doms_params.
type ParamsRow struct {
	PrimaryDataset  string
	MatchupDatasets string
	DepthTolerance  *float64
	TimeTolerance   int64
	RadiusTolerance float64
	StartTime       time.Time
	EndTime         time.Time
	Platforms       string
	BoundingBox     string
	Parameter       *string
}

// StatsRow is a row of doms_execution_stats.
type StatsRow struct {
	NumGriddedMatched int64
	NumGriddedChecked int64
	NumInSituMatched  int64
	NumInSituChecked  int64
	TimeToComplete    int64
}

// DataRow is a row of doms_data.
type DataRow struct {
	ValueID           string
	PrimaryValueID    *string
	IsPrimary         bool
	X                 float64
	Y                 float64
	SourceDataset     string
	MeasurementTime   time.Time
	Platform          string
	Device            string
	MeasurementValues []byte
}

// Params converts the row into run parameters. Times become epoch
// milliseconds and the matchup datasets a list.
func (p ParamsRow) Params() matchup.Params {
	secondary := make([]interface{}, 0)
	for _, ds := range strings.Split(p.MatchupDatasets, ",") {
		if ds = strings.TrimSpace(ds); ds != "" {
			secondary = append(secondary, ds)
		}
	}

	params := matchup.Params{
		matchup.ParamPrimary:         p.PrimaryDataset,
		matchup.ParamMatchup:         secondary,
		matchup.ParamTimeTolerance:   p.TimeTolerance,
		matchup.ParamRadiusTolerance: p.RadiusTolerance,
		matchup.ParamStartTime:       p.StartTime.UnixMilli(),
		matchup.ParamEndTime:         p.EndTime.UnixMilli(),
		matchup.ParamPlatforms:       p.Platforms,
		matchup.ParamBoundingBox:     p.BoundingBox,
	}
	if p.DepthTolerance != nil {
		params[matchup.ParamDepthTolerance] = *p.DepthTolerance
	}
	if p.Parameter != nil {
		params[matchup.ParamParameter] = *p.Parameter
	}
	return params
}

// Details converts the row into execution details.
func (s StatsRow) Details() matchup.Details {
	return matchup.Details{
		matchup.DetailNumGriddedMatched: s.NumGriddedMatched,
		matchup.DetailNumGriddedChecked: s.NumGriddedChecked,
		matchup.DetailNumInSituMatched:  s.NumInSituMatched,
		matchup.DetailNumInSituChecked:  s.NumInSituChecked,
		matchup.DetailTimeToComplete:    s.TimeToComplete,
	}
}

// Record converts the row into a record. Measurements that are null or not
// numbers or strings are left out, so they project as missing.
func (d DataRow) Record() (*matchup.Record, error) {
	rec := matchup.NewRecord().
		Set(FieldID, matchup.String(d.ValueID)).
		Set(FieldX, matchup.Number(d.X)).
		Set(FieldY, matchup.Number(d.Y)).
		Set(FieldTime, matchup.Time(d.MeasurementTime.UTC())).
		Set(FieldSource, matchup.String(d.SourceDataset)).
		Set(FieldPlatform, matchup.String(d.Platform)).
		Set(FieldDevice, matchup.String(d.Device))

	if len(d.MeasurementValues) == 0 {
		return rec, nil
	}
	var values map[string]interface{}
	if err := jsonpool.Unmarshal(d.MeasurementValues, &values); err != nil {
		return nil, domserrors.Wrap(err, domserrors.ErrorTypeValidation, "invalid measurement values").
			WithDetail("value_id", d.ValueID)
	}
	for name, raw := range values {
		switch v := raw.(type) {
		case float64:
			if !math.IsNaN(v) {
				rec.Set(name, matchup.Number(v))
			}
		case string:
			rec.Set(name, matchup.String(v))
		}
	}
	return rec, nil
}

// AssembleTree builds the record tree from data rows: primary rows in the
// order given, each followed by the rows matched to it.
func AssembleTree(rows []DataRow) (matchup.Tree, error) {
	tree := make(matchup.Tree, 0)
	primaries := make(map[string]*matchup.Record)

	for _, row := range rows {
		if !row.IsPrimary {
			continue
		}
		rec, err := row.Record()
		if err != nil {
			return nil, err
		}
		if _, dup := primaries[row.ValueID]; dup {
			return nil, domserrors.Newf(domserrors.ErrorTypeValidation, "duplicate primary value %q", row.ValueID)
		}
		rec.Matches = []*matchup.Record{}
		primaries[row.ValueID] = rec
		tree = append(tree, rec)
	}

	for _, row := range rows {
		if row.IsPrimary {
			continue
		}
		if row.PrimaryValueID == nil {
			return nil, domserrors.Newf(domserrors.ErrorTypeValidation, "matched value %q has no primary", row.ValueID)
		}
		parent, ok := primaries[*row.PrimaryValueID]
		if !ok {
			return nil, domserrors.Newf(domserrors.ErrorTypeNotFound, "primary value %q of %q not found",
				*row.PrimaryValueID, row.ValueID)
		}
		rec, err := row.Record()
		if err != nil {
			return nil, err
		}
		parent.AddMatch(rec)
	}
	return tree, nil
}
