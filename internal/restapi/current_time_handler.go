package restapi

import (
	"net/http"
	"time"

	"commute.trackapp.dev/internal/clock"
	"commute.trackapp.dev/internal/models"
)

// currentTimeHandler reports the server clock and the hour and weekday bucket
// a trip started now would be filed under.
func (api *RestAPI) currentTimeHandler(w http.ResponseWriter, r *http.Request) {
	now := api.Clock.Now()
	loc := api.Engine.Config().Location

	api.sendOK(w, r, models.CurrentTimeData{
		ReadableTime: now.In(loc).Format(time.RFC3339),
		Time:         now.UnixMilli(),
		HourOfDay:    clock.HourOfDay(now, loc),
		DayOfWeek:    clock.DayOfWeek(now, loc),
	})
}
