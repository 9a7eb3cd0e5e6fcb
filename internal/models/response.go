package models

import (
	"commute.trackapp.dev/internal/clock"
)

// ResponseVersion is bumped when the envelope changes shape.
const ResponseVersion = 1

// ResponseModel is the envelope every JSON endpoint answers with.
type ResponseModel struct {
	Code        int         `json:"code"`
	CurrentTime int64       `json:"currentTime"`
	Text        string      `json:"text"`
	Version     int         `json:"version"`
	Data        interface{} `json:"data,omitempty"`
}

func ResponseCurrentTime(clk clock.Clock) int64 {
	return clk.NowUnixMilli()
}

func NewOKResponse(data interface{}, clk clock.Clock) ResponseModel {
	return NewResponse(200, "OK", data, clk)
}

func NewResponse(code int, text string, data interface{}, clk clock.Clock) ResponseModel {
	return ResponseModel{
		Code:        code,
		CurrentTime: ResponseCurrentTime(clk),
		Text:        text,
		Version:     ResponseVersion,
		Data:        data,
	}
}

type CurrentTimeData struct {
	ReadableTime string `json:"readableTime"`
	Time         int64  `json:"time"`
	// Hour and weekday as the engine buckets trips, weekday 1 = Sunday.
	HourOfDay int `json:"hourOfDay"`
	DayOfWeek int `json:"dayOfWeek"`
}
