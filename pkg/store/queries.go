package store

// Results tables written by the matchup service. One execution row owns one
// params row, one stats row and any number of data rows. Matched data rows
// point at their primary through primary_value_id.
const (
	queryExecution = `
SELECT id, time_started, time_completed
FROM doms_executions
WHERE id = $1`

	queryParams = `
SELECT primary_dataset, matchup_datasets, depth_tolerance, time_tolerance,
       radius_tolerance, start_time, end_time, platforms, bounding_box, parameter
FROM doms_params
WHERE execution_id = $1`

	queryStats = `
SELECT num_gridded_matched, num_gridded_checked, num_insitu_matched,
       num_insitu_checked, time_to_complete
FROM doms_execution_stats
WHERE execution_id = $1`

	queryData = `
SELECT value_id, primary_value_id, is_primary, x, y, source_dataset,
       measurement_time, platform, device, measurement_values
FROM doms_data
WHERE execution_id = $1
ORDER BY is_primary DESC, id`
)
