package postgres

import (
	"database/sql"
	"time"

	"dispatch/internal/domain"
)

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func coordinateColumns(c *domain.Coordinate) (lat, lng sql.NullFloat64) {
	if c == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: c.Lat, Valid: true}, sql.NullFloat64{Float64: c.Lng, Valid: true}
}

func coordinateFromColumns(lat, lng sql.NullFloat64) *domain.Coordinate {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &domain.Coordinate{Lat: lat.Float64, Lng: lng.Float64}
}
