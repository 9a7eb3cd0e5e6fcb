package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// WeatherCondition is the weather reported by the caller at prediction time.
type WeatherCondition string

const (
	WeatherClear WeatherCondition = "clear"
	WeatherRain  WeatherCondition = "rain"
	WeatherSnow  WeatherCondition = "snow"
)

// ParseWeatherCondition accepts the stored names case-insensitively. An empty
// string is treated as clear.
func ParseWeatherCondition(s string) (WeatherCondition, error) {
	switch WeatherCondition(strings.ToLower(strings.TrimSpace(s))) {
	case "", WeatherClear:
		return WeatherClear, nil
	case WeatherRain:
		return WeatherRain, nil
	case WeatherSnow:
		return WeatherSnow, nil
	}
	return "", fmt.Errorf("unknown weather condition %q", s)
}

func (w WeatherCondition) Valid() bool {
	return w == WeatherClear || w == WeatherRain || w == WeatherSnow
}

func (w WeatherCondition) String() string {
	return string(w)
}

func (w *WeatherCondition) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseWeatherCondition(s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
