package sensor

import (
	"time"

	"codeberg.org/mutker/airnode/internal/logger"
	"periph.io/x/conn/v3/gpio"
)

const (
	// NoEcho is returned when no echo pulse completes within the timeout
	NoEcho = -1.0

	// DefaultEchoTimeout bounds the echo wait (~510cm of range)
	DefaultEchoTimeout = 30 * time.Millisecond

	settleLow       = 2 * time.Microsecond
	triggerWidth    = 10 * time.Microsecond
	cmPerMicrosec   = 0.034
	roundTripFactor = 2
)

// EchoRanger drives an HC-SR04 style trigger/echo pair
type EchoRanger struct {
	trigger TriggerPin
	echo    EchoPin
	timeout time.Duration
	now     func() time.Time
	sleep   func(time.Duration)
	logger  logger.Logger
}

type RangerOption func(*EchoRanger)

// WithClock replaces the time source and the trigger delay
func WithClock(now func() time.Time, sleep func(time.Duration)) RangerOption {
	return func(r *EchoRanger) {
		r.now = now
		r.sleep = sleep
	}
}

func NewEchoRanger(trigger TriggerPin, echo EchoPin, timeout time.Duration, log logger.Logger, opts ...RangerOption) *EchoRanger {
	if timeout <= 0 {
		timeout = DefaultEchoTimeout
	}

	r := &EchoRanger{
		trigger: trigger,
		echo:    echo,
		timeout: timeout,
		now:     time.Now,
		sleep:   time.Sleep,
		logger:  log,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Distance emits a trigger pulse and times the echo pulse. The whole wait,
// rising and falling edge included, is bounded by the ranger's timeout.
func (r *EchoRanger) Distance() float64 {
	if err := r.pulse(); err != nil {
		r.logger.Debug().Err(err).Msg("Failed to trigger ranger")
		return NoEcho
	}

	deadline := r.now().Add(r.timeout)

	if !r.waitLevel(gpio.High, deadline) {
		return NoEcho
	}
	rise := r.now()

	if !r.waitLevel(gpio.Low, deadline) {
		return NoEcho
	}

	width := r.now().Sub(rise)
	if width <= 0 {
		return NoEcho
	}

	return float64(width) / float64(time.Microsecond) * cmPerMicrosec / roundTripFactor
}

func (r *EchoRanger) pulse() error {
	if err := r.trigger.Out(gpio.Low); err != nil {
		return err
	}
	r.sleep(settleLow)

	if err := r.trigger.Out(gpio.High); err != nil {
		return err
	}
	r.sleep(triggerWidth)

	return r.trigger.Out(gpio.Low)
}

func (r *EchoRanger) waitLevel(level gpio.Level, deadline time.Time) bool {
	for r.echo.Read() != level {
		remaining := deadline.Sub(r.now())
		if remaining <= 0 || !r.echo.WaitForEdge(remaining) {
			return false
		}
	}

	return true
}
