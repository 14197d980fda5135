package sensor

import (
	"math"
	"time"
)

const (
	// MaxRaw is the top of the 12-bit analog range
	MaxRaw = 4095

	minTemperature = -40.0
	maxTemperature = 85.0
	maxDistance    = 600.0
)

// Cache keeps the last valid reading per sensor kind. It is owned by the
// scheduler goroutine and is not safe for concurrent use.
type Cache struct {
	readings [len(kindNames)]Reading
	now      func() time.Time
}

func NewCache() *Cache {
	return &Cache{now: time.Now}
}

// NewCacheWithClock returns a cache that timestamps readings with now
func NewCacheWithClock(now func() time.Time) *Cache {
	return &Cache{now: now}
}

// RecordIfValid stores value for kind when it passes the kind's validity
// check and reports whether it was stored. Invalid values leave the
// previous reading untouched.
func (c *Cache) RecordIfValid(kind Kind, value float64) bool {
	if kind < 0 || int(kind) >= len(c.readings) || !IsValid(kind, value) {
		return false
	}

	c.readings[kind] = Reading{Value: value, Valid: true, At: c.now()}

	return true
}

// Read returns the cached reading for kind
func (c *Cache) Read(kind Kind) Reading {
	if kind < 0 || int(kind) >= len(c.readings) {
		return Reading{}
	}
	return c.readings[kind]
}

// IsValid reports whether value is a plausible reading for kind
func IsValid(kind Kind, value float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}

	switch kind {
	case Temperature:
		return value >= minTemperature && value <= maxTemperature
	case Humidity:
		return value >= 0 && value <= 100
	case Gas, Light:
		return value >= 0 && value <= MaxRaw
	case Distance:
		return value == NoEcho || (value > 0 && value <= maxDistance)
	default:
		return false
	}
}
