package commutedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const patternColumns = `id, route_id, direction, start_latitude, start_longitude, destination_station_id,
	destination_name, time_of_day, day_of_week, frequency, last_used`

const createPattern = `INSERT INTO commute_patterns (
	route_id, direction, start_latitude, start_longitude, destination_station_id,
	destination_name, time_of_day, day_of_week, frequency, last_used
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
RETURNING ` + patternColumns

// CreatePattern inserts a new pattern with frequency 1.
func (q *Queries) CreatePattern(ctx context.Context, arg CreatePatternParams) (CommutePattern, error) {
	var row CommutePattern
	err := q.get(ctx, &row, createPattern,
		arg.RouteID,
		arg.Direction,
		arg.StartLatitude,
		arg.StartLongitude,
		arg.DestinationStationID,
		arg.DestinationName,
		arg.TimeOfDay,
		arg.DayOfWeek,
		arg.LastUsed,
	)
	return row, err
}

const listPatternCandidates = `SELECT ` + patternColumns + `
FROM commute_patterns
WHERE route_id = ?
  AND direction = ?
  AND destination_station_id = ?
  AND start_latitude BETWEEN ? AND ?`

// ListPatternCandidates returns patterns sharing the route, direction and
// destination whose start lies in the box, oldest first.
func (q *Queries) ListPatternCandidates(ctx context.Context, arg ListPatternCandidatesParams) ([]CommutePattern, error) {
	query := listPatternCandidates
	args := []any{arg.RouteID, arg.Direction, arg.DestinationStationID, arg.MinLat, arg.MaxLat}
	if len(arg.Longitudes) > 0 {
		clauses := make([]string, len(arg.Longitudes))
		for i, r := range arg.Longitudes {
			clauses[i] = "start_longitude BETWEEN ? AND ?"
			args = append(args, r[0], r[1])
		}
		query += "\n  AND (" + strings.Join(clauses, " OR ") + ")"
	}
	query += "\nORDER BY id ASC"

	rows := []CommutePattern{}
	err := q.sel(ctx, &rows, query, args...)
	return rows, err
}

const touchPattern = `UPDATE commute_patterns
SET frequency = frequency + 1, last_used = ?
WHERE id = ?
RETURNING ` + patternColumns

// TouchPattern increments a pattern's frequency and stamps its last use.
func (q *Queries) TouchPattern(ctx context.Context, arg TouchPatternParams) (CommutePattern, error) {
	var row CommutePattern
	err := q.get(ctx, &row, touchPattern, arg.LastUsed, arg.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return CommutePattern{}, fmt.Errorf("pattern %d: %w", arg.ID, ErrPatternNotFound)
	}
	return row, err
}

const getPattern = `SELECT ` + patternColumns + ` FROM commute_patterns WHERE id = ?`

func (q *Queries) GetPattern(ctx context.Context, id int64) (CommutePattern, error) {
	var row CommutePattern
	err := q.get(ctx, &row, getPattern, id)
	if errors.Is(err, sql.ErrNoRows) {
		return CommutePattern{}, fmt.Errorf("pattern %d: %w", id, ErrPatternNotFound)
	}
	return row, err
}

const listPatternsInHourWindow = `SELECT ` + patternColumns + `
FROM commute_patterns
WHERE time_of_day BETWEEN ? AND ?
ORDER BY frequency DESC, id ASC`

const listPatternsInHourWindowByRecency = `SELECT ` + patternColumns + `
FROM commute_patterns
WHERE time_of_day BETWEEN ? AND ?
ORDER BY frequency DESC, last_used DESC, id ASC`

// ListPatternsInHourWindow returns patterns recorded in the inclusive hour
// range, most frequent first. Equal frequencies keep insertion order unless
// RankByRecency is set.
func (q *Queries) ListPatternsInHourWindow(ctx context.Context, arg ListPatternsInHourWindowParams) ([]CommutePattern, error) {
	query := listPatternsInHourWindow
	if arg.RankByRecency {
		query = listPatternsInHourWindowByRecency
	}
	rows := []CommutePattern{}
	err := q.sel(ctx, &rows, query, arg.MinHour, arg.MaxHour)
	return rows, err
}

const listPatterns = `SELECT ` + patternColumns + `
FROM commute_patterns
ORDER BY frequency DESC, id ASC`

func (q *Queries) ListPatterns(ctx context.Context) ([]CommutePattern, error) {
	rows := []CommutePattern{}
	err := q.sel(ctx, &rows, listPatterns)
	return rows, err
}

// DeleteAllPatterns removes every learned pattern. Only user-initiated resets call it.
func (q *Queries) DeleteAllPatterns(ctx context.Context) (int64, error) {
	return q.exec(ctx, `DELETE FROM commute_patterns`)
}
