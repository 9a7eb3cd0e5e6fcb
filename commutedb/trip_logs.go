package commutedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const tripLogColumns = `id, route_id, origin_station_id, destination_station_id, time_of_day, day_of_week,
	weather_condition, mta_predicted_time, actual_arrival_time, delay_seconds, trip_date`

const createTripLog = `INSERT INTO trip_logs (
	route_id, origin_station_id, destination_station_id, time_of_day, day_of_week,
	weather_condition, mta_predicted_time, actual_arrival_time, delay_seconds, trip_date
) VALUES (?, ?, ?, ?, ?, ?, ?, NULL, 0, ?)
RETURNING ` + tripLogColumns

// CreateTripLog inserts an unfinalized trip and returns the stored row.
func (q *Queries) CreateTripLog(ctx context.Context, arg CreateTripLogParams) (TripLog, error) {
	var row TripLog
	err := q.get(ctx, &row, createTripLog,
		arg.RouteID,
		arg.OriginStationID,
		arg.DestinationStationID,
		arg.TimeOfDay,
		arg.DayOfWeek,
		arg.WeatherCondition,
		arg.MtaPredictedTime,
		arg.TripDate,
	)
	return row, err
}

const finalizeTripLog = `UPDATE trip_logs
SET actual_arrival_time = ?, delay_seconds = ?
WHERE id = ? AND actual_arrival_time IS NULL`

// FinalizeTripLog records the arrival of an open trip. A trip can be finalized
// once; afterwards the row is immutable.
func (q *Queries) FinalizeTripLog(ctx context.Context, arg FinalizeTripLogParams) error {
	n, err := q.exec(ctx, finalizeTripLog, arg.ActualArrivalTime, arg.DelaySeconds, arg.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := q.GetTripLog(ctx, arg.ID); err != nil {
		return err
	}
	return ErrTripAlreadyFinalized
}

const getTripLog = `SELECT ` + tripLogColumns + ` FROM trip_logs WHERE id = ?`

func (q *Queries) GetTripLog(ctx context.Context, id int64) (TripLog, error) {
	var row TripLog
	err := q.get(ctx, &row, getTripLog, id)
	if errors.Is(err, sql.ErrNoRows) {
		return TripLog{}, fmt.Errorf("trip %d: %w", id, ErrTripNotFound)
	}
	return row, err
}

const listOpenTripLogs = `SELECT ` + tripLogColumns + `
FROM trip_logs
WHERE actual_arrival_time IS NULL
ORDER BY id ASC`

// ListOpenTripLogs returns trips that were started but never finalized.
func (q *Queries) ListOpenTripLogs(ctx context.Context) ([]TripLog, error) {
	rows := []TripLog{}
	err := q.sel(ctx, &rows, listOpenTripLogs)
	return rows, err
}

const listRecentTripLogs = `SELECT ` + tripLogColumns + `
FROM trip_logs
ORDER BY trip_date DESC, id DESC
LIMIT ?`

func (q *Queries) ListRecentTripLogs(ctx context.Context, limit int64) ([]TripLog, error) {
	rows := []TripLog{}
	err := q.sel(ctx, &rows, listRecentTripLogs, limit)
	return rows, err
}

const listHistoricDelays = `SELECT delay_seconds
FROM trip_logs
WHERE route_id = ?
  AND day_of_week = ?
  AND time_of_day BETWEEN ? AND ?
  AND actual_arrival_time IS NOT NULL
ORDER BY id ASC`

// ListHistoricDelays returns delay samples of finalized trips on a route for
// one weekday and an inclusive hour range.
func (q *Queries) ListHistoricDelays(ctx context.Context, arg ListHistoricDelaysParams) ([]int64, error) {
	delays := []int64{}
	err := q.sel(ctx, &delays, listHistoricDelays, arg.RouteID, arg.DayOfWeek, arg.MinHour, arg.MaxHour)
	return delays, err
}

func (q *Queries) DeleteAllTripLogs(ctx context.Context) (int64, error) {
	return q.exec(ctx, `DELETE FROM trip_logs`)
}
