package fan

import (
	"sync"

	"codeberg.org/mutker/airnode/internal/errors"
	"codeberg.org/mutker/airnode/internal/logger"
)

// State holds the commanded fan speed. A write clamps, stores and drives the
// hardware under one lock, so readers only ever see applied, in-range values.
type State struct {
	driver  Driver
	channel int
	speed   int
	mu      sync.RWMutex
	logger  logger.Logger
	onApply func(speed int)
}

type Option func(*State)

// WithChannel selects the driver channel the fan is attached to
func WithChannel(channel int) Option {
	return func(s *State) {
		s.channel = channel
	}
}

// WithObserver registers a callback invoked after every successful write
func WithObserver(fn func(speed int)) Option {
	return func(s *State) {
		s.onApply = fn
	}
}

func NewState(driver Driver, initial int, log logger.Logger, opts ...Option) *State {
	s := &State{
		driver: driver,
		speed:  Clamp(initial),
		logger: log,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get returns the current commanded speed
func (s *State) Get() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.speed
}

// Set clamps speed into [MinSpeed, MaxSpeed], stores it and applies it to the
// driver before returning the applied value.
func (s *State) Set(speed int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.speed = Clamp(speed)
	s.apply()

	if speed != s.speed {
		s.logger.Debug().Int("requested", speed).Int("applied", s.speed).Msg("Fan speed clamped")
	}

	return s.speed
}

// Apply re-drives the hardware with the stored speed
func (s *State) Apply() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply()
}

func (s *State) apply() {
	//nolint:gosec // G115: Safe - speed is clamped to [0, 255]
	if err := s.driver.Apply(s.channel, uint8(s.speed)); err != nil {
		s.logger.ErrorWithCode(errors.New().Wrap(ErrApplyFailed, err)).
			Int("speed", s.speed).
			Msg("Failed to drive fan")
		return
	}

	if s.onApply != nil {
		s.onApply(s.speed)
	}
}

// Clamp bounds speed to the valid duty range
func Clamp(speed int) int {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}

	return speed
}
