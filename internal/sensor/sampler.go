package sensor

import (
	"context"
	"time"

	"codeberg.org/mutker/airnode/internal/logger"
)

const (
	DefaultClimateAttempts = 3
	DefaultClimatePause    = 200 * time.Millisecond
)

// Hardware groups the sensor collaborators sampled by the node
type Hardware struct {
	Climate      Climate
	Analog       Analog
	Ranger       Ranger
	GasChannel   int
	LightChannel int
}

// Sampler feeds hardware readings into a Cache
type Sampler struct {
	hw       Hardware
	cache    *Cache
	attempts int
	pause    time.Duration
	logger   logger.Logger
}

func NewSampler(hw Hardware, cache *Cache, attempts int, pause time.Duration, log logger.Logger) *Sampler {
	if attempts < 1 {
		attempts = DefaultClimateAttempts
	}

	return &Sampler{
		hw:       hw,
		cache:    cache,
		attempts: attempts,
		pause:    pause,
		logger:   log,
	}
}

// Cache returns the cache the sampler writes to
func (s *Sampler) Cache() *Cache {
	return s.cache
}

// SampleAmbient reads the gas, light and distance sensors once each
func (s *Sampler) SampleAmbient() {
	readings := []struct {
		kind  Kind
		value float64
	}{
		{Gas, float64(s.hw.Analog.ReadAnalog(s.hw.GasChannel))},
		{Light, float64(s.hw.Analog.ReadAnalog(s.hw.LightChannel))},
		{Distance, s.hw.Ranger.Distance()},
	}

	for _, r := range readings {
		if !s.cache.RecordIfValid(r.kind, r.value) {
			s.logger.Debug().Str("sensor", r.kind.String()).Float64("value", r.value).Msg("Discarded invalid reading")
		}
	}
}

// SampleClimate performs up to the configured number of temperature and
// humidity reads, pausing between attempts, and caches the first pair where
// both values are valid. It reports false when every attempt failed; the
// cache then keeps its previous values.
func (s *Sampler) SampleClimate(ctx context.Context) bool {
	for attempt := 1; attempt <= s.attempts; attempt++ {
		t := s.hw.Climate.ReadTemperature()
		h := s.hw.Climate.ReadHumidity()

		if IsValid(Temperature, t) && IsValid(Humidity, h) {
			s.cache.RecordIfValid(Temperature, t)
			s.cache.RecordIfValid(Humidity, h)
			return true
		}

		s.logger.Debug().Int("attempt", attempt).Msg("Climate read invalid")

		if attempt == s.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.pause):
		}
	}

	return false
}
