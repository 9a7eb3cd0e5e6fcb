package clock

import "time"

// HourWindowHalfWidth is the number of hours either side of the current hour
// that still counts as "the same time of day".
const HourWindowHalfWidth = 1

// HourOfDay returns t's hour (0-23) in loc. A nil loc keeps t's own zone.
func HourOfDay(t time.Time, loc *time.Location) int {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Hour()
}

// DayOfWeek returns t's weekday in loc numbered 1 (Sunday) to 7 (Saturday).
func DayOfWeek(t time.Time, loc *time.Location) int {
	if loc != nil {
		t = t.In(loc)
	}
	return int(t.Weekday()) + 1
}

// HourWindow returns the inclusive [min, max] hour range around hour,
// clamped to the day so midnight and 23:00 do not wrap.
func HourWindow(hour int) (minHour, maxHour int) {
	return max(0, hour-HourWindowHalfWidth), min(23, hour+HourWindowHalfWidth)
}
