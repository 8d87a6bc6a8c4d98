package domain

import (
	"encoding/json"
	"errors"
	"strconv"
)

// Coordinate is a latitude/longitude pair. It is the single coordinate type
// accepted at the API boundary: clients historically send locations as an
// object ({"lat": .., "lng": ..} or {"latitude": .., "longitude": ..}) or as
// a two-element [lat, lng] array, so parsing happens once here and the rest
// of the system only ever sees a typed value.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ErrBadCoordinate is returned when a payload cannot be parsed into a
// latitude/longitude pair.
var ErrBadCoordinate = errors.New("malformed coordinate")

// Valid reports whether the pair is within WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// UnmarshalJSON accepts the object and array encodings described above.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err == nil {
		lat, latOK := coordField(obj, "lat", "latitude")
		lng, lngOK := coordField(obj, "lng", "longitude")
		if latOK && lngOK {
			c.Lat, c.Lng = lat, lng
			return nil
		}
		return ErrBadCoordinate
	}

	var arr []any
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) >= 2 {
		lat, latOK := toFloat(arr[0])
		lng, lngOK := toFloat(arr[1])
		if latOK && lngOK {
			c.Lat, c.Lng = lat, lng
			return nil
		}
	}

	return ErrBadCoordinate
}

func coordField(obj map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if f, ok := toFloat(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		// Some clients send coordinates as quoted strings.
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
