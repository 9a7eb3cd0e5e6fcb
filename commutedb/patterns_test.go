package commutedb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCreatePattern(t *testing.T, q *Queries, routeID string, lat, lon float64, hour int64) CommutePattern {
	t.Helper()
	p, err := q.CreatePattern(context.Background(), CreatePatternParams{
		RouteID:              routeID,
		Direction:            "N",
		StartLatitude:        lat,
		StartLongitude:       lon,
		DestinationStationID: "L01",
		DestinationName:      "8 Av",
		TimeOfDay:            hour,
		DayOfWeek:            2,
		LastUsed:             1_700_000_000_000,
	})
	require.NoError(t, err)
	return p
}

func TestCreateAndTouchPattern(t *testing.T) {
	ctx := context.Background()
	q := newTestClient(t).Queries

	p := mustCreatePattern(t, q, "L", 40.7171, -73.9565, 8)
	assert.Equal(t, int64(1), p.Frequency)

	touched, err := q.TouchPattern(ctx, TouchPatternParams{ID: p.ID, LastUsed: 1_700_000_500_000})
	require.NoError(t, err)
	assert.Equal(t, int64(2), touched.Frequency)
	assert.Equal(t, int64(1_700_000_500_000), touched.LastUsed)
	assert.Equal(t, p.StartLatitude, touched.StartLatitude)

	_, err = q.TouchPattern(ctx, TouchPatternParams{ID: 4242, LastUsed: 1})
	assert.True(t, errors.Is(err, ErrPatternNotFound))

	_, err = q.GetPattern(ctx, 4242)
	assert.True(t, errors.Is(err, ErrPatternNotFound))
}

func TestListPatternCandidates(t *testing.T) {
	ctx := context.Background()
	q := newTestClient(t).Queries

	inside := mustCreatePattern(t, q, "L", 40.7171, -73.9565, 8)
	mustCreatePattern(t, q, "L", 40.80, -73.90, 8) // outside the box
	mustCreatePattern(t, q, "G", 40.7171, -73.9565, 8)

	got, err := q.ListPatternCandidates(ctx, ListPatternCandidatesParams{
		RouteID: "L", Direction: "N", DestinationStationID: "L01",
		MinLat: 40.71, MaxLat: 40.72, Longitudes: [][2]float64{{-73.96, -73.95}},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inside.ID, got[0].ID)
}

func TestListPatternCandidatesSplitLongitudes(t *testing.T) {
	ctx := context.Background()
	q := newTestClient(t).Queries

	east := mustCreatePattern(t, q, "L", -17.8, 179.9995, 8)
	west := mustCreatePattern(t, q, "L", -17.8, -179.9995, 8)
	mustCreatePattern(t, q, "L", -17.8, 0, 8)

	params := ListPatternCandidatesParams{
		RouteID: "L", Direction: "N", DestinationStationID: "L01",
		MinLat: -17.81, MaxLat: -17.79,
		Longitudes: [][2]float64{{-180, -179.99}, {179.99, 180}},
	}
	got, err := q.ListPatternCandidates(ctx, params)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []int64{east.ID, west.ID}, []int64{got[0].ID, got[1].ID})

	params.Longitudes = nil
	got, err = q.ListPatternCandidates(ctx, params)
	require.NoError(t, err)
	assert.Len(t, got, 3, "no longitude ranges leaves longitude unconstrained")
}

func TestListPatternsInHourWindow(t *testing.T) {
	ctx := context.Background()
	q := newTestClient(t).Queries

	a := mustCreatePattern(t, q, "A", 40.70, -73.95, 8)
	b := mustCreatePattern(t, q, "B", 40.70, -73.95, 9)
	c := mustCreatePattern(t, q, "C", 40.70, -73.95, 7)
	mustCreatePattern(t, q, "D", 40.70, -73.95, 11)

	_, err := q.TouchPattern(ctx, TouchPatternParams{ID: c.ID, LastUsed: 1_700_000_100_000})
	require.NoError(t, err)
	_, err = q.TouchPattern(ctx, TouchPatternParams{ID: b.ID, LastUsed: 1_700_000_900_000})
	require.NoError(t, err)

	ids := func(rows []CommutePattern) []int64 {
		out := make([]int64, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.ID)
		}
		return out
	}

	byFrequency, err := q.ListPatternsInHourWindow(ctx, ListPatternsInHourWindowParams{MinHour: 7, MaxHour: 9})
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, c.ID, a.ID}, ids(byFrequency))

	_, err = q.TouchPattern(ctx, TouchPatternParams{ID: b.ID, LastUsed: 1_700_000_000_001})
	require.NoError(t, err)
	_, err = q.TouchPattern(ctx, TouchPatternParams{ID: c.ID, LastUsed: 1_700_000_999_999})
	require.NoError(t, err)
	// b=3 (older), c=3 (newer)

	insertionOrder, err := q.ListPatternsInHourWindow(ctx, ListPatternsInHourWindowParams{MinHour: 7, MaxHour: 9})
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, c.ID, a.ID}, ids(insertionOrder))

	recency, err := q.ListPatternsInHourWindow(ctx, ListPatternsInHourWindowParams{MinHour: 7, MaxHour: 9, RankByRecency: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID, b.ID, a.ID}, ids(recency))
}

func TestDeleteAllPatterns(t *testing.T) {
	ctx := context.Background()
	q := newTestClient(t).Queries
	mustCreatePattern(t, q, "L", 40.70, -73.95, 8)

	n, err := q.DeleteAllPatterns(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := q.ListPatterns(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
