// Package testutil provides testing utilities for DOMS
package testutil

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/doms/pkg/matchup"
)

// SampleExecutionID identifies SampleExecution.
const SampleExecutionID = "b2c1f6a2-5a8e-4d7c-9d7a-2b7e0c3d4f51"

// FixedNow is the clock reading tests stamp exports with.
var FixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

// FixedClock always returns FixedNow.
func FixedClock() time.Time { return FixedNow }

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout that is
// canceled when the test completes.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// SampleParams returns a complete set of run parameters.
func SampleParams() matchup.Params {
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

// SampleDetails returns a complete set of execution details.
func SampleDetails() matchup.Details {
	return matchup.Details{
		matchup.DetailTimeToComplete:    int64(26),
		matchup.DetailNumInSituMatched:  int64(2),
		matchup.DetailNumGriddedChecked: int64(10),
		matchup.DetailNumGriddedMatched: int64(1),
		matchup.DetailNumInSituChecked:  int64(30),
	}
}

// SampleExecution returns a small execution: two primaries, the first with
// two matches.
func SampleExecution() *matchup.Execution {
	primary := matchup.NewRecord().
		Set("x", matchup.Number(-40.5)).
		Set("y", matchup.Number(20.25)).
		Set("sea_water_temperature", matchup.Number(27.5)).
		Set("time", matchup.Time(time.Unix(1451610000, 0).UTC())).
		AddMatch(
			matchup.NewRecord().
				Set("x", matchup.Number(-40.4)).
				Set("y", matchup.Number(20.2)).
				Set("sea_water_salinity", matchup.Number(35.1)),
			matchup.NewRecord().
				Set("x", matchup.Number(-40.6)).
				Set("y", matchup.Number(20.3)),
		)
	return &matchup.Execution{
		ID:      SampleExecutionID,
		Tree:    matchup.Tree{primary, matchup.NewRecord().Set("x", matchup.Number(-35)).Set("y", matchup.Number(21))},
		Params:  SampleParams(),
		Details: SampleDetails(),
		Count:   -1,
	}
}

// SampleDocument is the input document form of SampleExecution, with the
// primary time given in epoch seconds.
const SampleDocument = `{
    "executionId": "` + SampleExecutionID + `",
    "data": [
        {
            "x": -40.5,
            "y": 20.25,
            "sea_water_temperature": 27.5,
            "time": 1451610000,
            "matches": [
                {"x": -40.4, "y": 20.2, "sea_water_salinity": 35.1},
                {"x": -40.6, "y": 20.3}
            ]
        },
        {"x": -35, "y": 21}
    ],
    "params": {
        "timeTolerance": 86400,
        "startTime": 1451606400000,
        "endTime": 1454284799000,
        "depthTolerance": 5.0,
        "platforms": "1,2,3",
        "radiusTolerance": 1000.5,
        "bbox": "-45,15,-30,30",
        "primary": "MUR-JPL-L4-GLOB-v4.1",
        "matchup": ["spurs", "icoads"]
    },
    "bounds": {},
    "count": 2,
    "details": {
        "timeToComplete": 26,
        "numInSituMatched": 2,
        "numGriddedChecked": 10,
        "numGriddedMatched": 1,
        "numInSituChecked": 30
    }
}`
