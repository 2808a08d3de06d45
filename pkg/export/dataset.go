package export

import (
	"strings"
	"time"

	"github.com/ajitpratap0/doms/pkg/domserrors"
	"github.com/ajitpratap0/doms/pkg/flatten"
	"github.com/ajitpratap0/doms/pkg/formats/columnar"
	"github.com/ajitpratap0/doms/pkg/geo"
	"github.com/ajitpratap0/doms/pkg/matchup"
)

// CoverageTimeLayout formats coverage and creation timestamps.
const CoverageTimeLayout = "20060102 15:04:05"

// Identifier variable names.
const (
	VarID        = "id"
	VarPrimaryID = "primary_id"
)

// FieldVariable maps a record field onto a dataset variable.
type FieldVariable struct {
	// Name is the variable name in the dataset.
	Name string
	// Field is the record field projected into it.
	Field string
	// Double stores the variable as float64 instead of float32.
	Double bool
}

// FieldVariables are the projected variables of every columnar export, in
// dataset order.
var FieldVariables = []FieldVariable{
	{Name: "lat", Field: "y"},
	{Name: "lon", Field: "x"},
	{Name: "sea_water_temperature_depth", Field: "sea_water_temperature_depth"},
	{Name: "sea_water_temperature", Field: "sea_water_temperature"},
	{Name: "sea_water_salinity_depth", Field: "sea_water_salinity_depth"},
	{Name: "sea_water_salinity", Field: "sea_water_salinity"},
	{Name: "wind_speed", Field: "wind_speed"},
	{Name: "wind_direction", Field: "wind_direction"},
	{Name: "wind_u", Field: "wind_u"},
	{Name: "wind_v", Field: "wind_v"},
	{Name: "time", Field: "time", Double: true},
}

// constantAttributes close every dataset's global attributes.
var constantAttributes = []columnar.Attribute{
	{Name: "bnds", Value: 2},
	{Name: "Conventions", Value: "CF-1.6, ACDD-1.3"},
	{Name: "title", Value: "DOMS satellite-insitu machup output file"},
	{Name: "history", Value: "Processing_Version = V1.0, Software_Name = DOMS, Software_Version = 1.03"},
	{Name: "institution", Value: "JPL, FSU, NCAR"},
	{Name: "source", Value: "doms.jpl.nasa.gov"},
	{Name: "standard_name_vocabulary", Value: []string{"CF Standard Name Table v27", "BODC controlled vocabulary"}},
	{Name: "cdm_data_type", Value: "Point/Profile, Swath/Grid"},
	{Name: "processing_level", Value: "4"},
	{Name: "platform", Value: "Endeavor"},
	{Name: "instrument", Value: "Endeavor on-board sea-bird SBE 9/11 CTD"},
	{Name: "project", Value: "Distributed Oceanographic Matchup System (DOMS)"},
	{Name: "keywords_vocabulary", Value: "NASA Global Change Master Directory (GCMD) Science Keywords"},
	{Name: "keywords", Value: "Salinity, Upper Ocean, SPURS, CTD, Endeavor, Atlantic Ocean"},
	{Name: "creator_name", Value: "NASA PO.DAAC"},
	{Name: "creator_email", Value: "podaac@podaac.jpl.nasa.gov"},
	{Name: "creator_url", Value: "https://podaac.jpl.nasa.gov/"},
	{Name: "publisher_name", Value: "NASA PO.DAAC"},
	{Name: "publisher_email", Value: "podaac@podaac.jpl.nasa.gov"},
	{Name: "publisher_url", Value: "https://podaac.jpl.nasa.gov"},
	{Name: "acknowledgment", Value: "DOMS is a NASA/AIST-funded project.  Grant number ####."},
}

// provenance maps execution detail keys to their attribute names.
var provenance = []struct{ detail, attr string }{
	{matchup.DetailTimeToComplete, "time_to_complete"},
	{matchup.DetailNumInSituMatched, "num_insitu_matched"},
	{matchup.DetailNumGriddedChecked, "num_gridded_checked"},
	{matchup.DetailNumGriddedMatched, "num_gridded_matched"},
	{matchup.DetailNumInSituChecked, "num_insitu_checked"},
}

// BuildDataset assembles the columnar dataset of exec. Every parameter and
// detail is looked up and every attribute checked before anything is
// written, so a missing key fails here with a missing parameter error.
func BuildDataset(exec *matchup.Execution, now time.Time) (*columnar.Dataset, error) {
	ds := columnar.NewDataset()
	if err := setRunAttributes(ds, exec, now); err != nil {
		return nil, err
	}
	for _, a := range constantAttributes {
		ds.SetAttribute(a.Name, a.Value)
	}
	for _, a := range ds.Attributes {
		if _, err := columnar.FormatAttribute(a.Value); err != nil {
			return nil, domserrors.Wrap(err, domserrors.ErrorTypeValidation, "unsupported attribute value").
				WithDetail(domserrors.DetailKey, a.Name)
		}
	}

	idx := flatten.Flatten(exec.Tree)
	ids, ok := flatten.Int32s(idx.IDs)
	if !ok {
		return nil, domserrors.Newf(domserrors.ErrorTypeValidation, "%d records exceed the id range", idx.Len())
	}
	parents, _ := flatten.Int32s(idx.ParentIDs)

	vars := []columnar.Variable{
		{Name: VarID, Data: ids},
		{Name: VarPrimaryID, Data: parents},
	}
	for _, fv := range FieldVariables {
		values := flatten.Project(exec.Tree, fv.Field)
		v := columnar.Variable{Name: fv.Name}
		if fv.Double {
			v.Data = values
		} else {
			v.Data = flatten.Float32s(values)
		}
		vars = append(vars, v)
	}
	for _, v := range vars {
		if err := ds.AddVariable(v); err != nil {
			return nil, domserrors.Wrap(err, domserrors.ErrorTypeInternal, "failed to add variable")
		}
	}
	return ds, nil
}

func setRunAttributes(ds *columnar.Dataset, exec *matchup.Execution, now time.Time) error {
	p := exec.Params

	timeTolerance, err := p.Value(matchup.ParamTimeTolerance)
	if err != nil {
		return err
	}
	start, err := p.Int64(matchup.ParamStartTime)
	if err != nil {
		return err
	}
	end, err := p.Int64(matchup.ParamEndTime)
	if err != nil {
		return err
	}
	depthTolerance, err := p.Value(matchup.ParamDepthTolerance)
	if err != nil {
		return err
	}
	platforms, err := p.Strings(matchup.ParamPlatforms)
	if err != nil {
		return err
	}
	radius, err := p.Value(matchup.ParamRadiusTolerance)
	if err != nil {
		return err
	}
	bboxText, err := p.String(matchup.ParamBoundingBox)
	if err != nil {
		return err
	}
	primary, err := p.String(matchup.ParamPrimary)
	if err != nil {
		return err
	}
	secondary, err := p.Strings(matchup.ParamMatchup)
	if err != nil {
		return err
	}
	parameter := ""
	if p.Has(matchup.ParamParameter) {
		if parameter, err = p.String(matchup.ParamParameter); err != nil {
			return err
		}
	}
	bbox, err := geo.ParseBoundingBox(bboxText)
	if err != nil {
		return err
	}

	ds.SetAttribute("matchID", exec.ID)
	ds.SetAttribute("Matchup_TimeWindow", timeTolerance)
	ds.SetAttribute("Matchup_TimeWindow_Units", "hours")
	ds.SetAttribute("time_coverage_start", time.UnixMilli(start).UTC().Format(CoverageTimeLayout))
	ds.SetAttribute("time_coverage_end", time.UnixMilli(end).UTC().Format(CoverageTimeLayout))
	ds.SetAttribute("depth_tolerance", depthTolerance)
	ds.SetAttribute("platforms", strings.Join(platforms, ","))
	ds.SetAttribute("Matchup_SearchRadius", radius)
	ds.SetAttribute("Matchup_SearchRadius_Units", "m")
	ds.SetAttribute("bounding_box", bboxText)
	ds.SetAttribute("primary", primary)
	ds.SetAttribute("secondary", strings.Join(secondary, ","))
	ds.SetAttribute("Matchup_ParameterPrimary", parameter)
	ds.SetAttribute("time_coverage_resolution", "point")

	ds.SetAttribute("geospatial_lat_max", bbox.North)
	ds.SetAttribute("geospatial_lat_min", bbox.South)
	ds.SetAttribute("geospatial_lon_max", bbox.East)
	ds.SetAttribute("geospatial_lon_min", bbox.West)
	ds.SetAttribute("geospatial_lat_resolution", "point")
	ds.SetAttribute("geospatial_lon_resolution", "point")
	ds.SetAttribute("geospatial_lat_units", "degrees_north")
	ds.SetAttribute("geospatial_lon_units", "degrees_east")
	ds.SetAttribute("geospatial_vertical_min", 0.0)
	ds.SetAttribute("geospatial_vertical_max", radius)
	ds.SetAttribute("geospatial_vertical_units", "m")
	ds.SetAttribute("geospatial_vertical_resolution", "point")
	ds.SetAttribute("geospatial_vertical_positive", "down")

	for _, pv := range provenance {
		v, err := exec.Details.Value(pv.detail)
		if err != nil {
			return err
		}
		ds.SetAttribute(pv.attr, v)
	}

	stamp := now.UTC().Format(CoverageTimeLayout)
	ds.SetAttribute("date_modified", stamp)
	ds.SetAttribute("date_created", stamp)
	return nil
}
