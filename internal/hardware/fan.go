package hardware

import (
	"sync"

	"codeberg.org/mutker/airnode/internal/errors"
	"codeberg.org/mutker/airnode/internal/logger"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

const DefaultPWMFrequency = 20 * physic.KiloHertz

// PWMFan drives an H-bridge fan channel: a PWM enable pin plus two
// direction pins held at a fixed forward direction.
type PWMFan struct {
	pwm       map[int]gpio.PinOut
	frequency physic.Frequency
	logger    logger.Logger
	mu        sync.Mutex
}

// NewPWMFan sets the direction pins forward (in1 high, in2 low) and returns
// a driver for the given channel pins.
func NewPWMFan(pwm map[int]gpio.PinOut, in1, in2 gpio.PinOut, frequency physic.Frequency, log logger.Logger) (*PWMFan, error) {
	errFactory := errors.New()

	if frequency <= 0 {
		frequency = DefaultPWMFrequency
	}

	if err := in1.Out(gpio.High); err != nil {
		return nil, errFactory.Wrap(ErrPinSetup, err)
	}
	if err := in2.Out(gpio.Low); err != nil {
		return nil, errFactory.Wrap(ErrPinSetup, err)
	}

	return &PWMFan{
		pwm:       pwm,
		frequency: frequency,
		logger:    log,
	}, nil
}

// Apply sets the duty cycle of channel. Duty 0 holds the pin low.
func (f *PWMFan) Apply(channel int, duty uint8) error {
	errFactory := errors.New()

	f.mu.Lock()
	defer f.mu.Unlock()

	pin, ok := f.pwm[channel]
	if !ok {
		return errFactory.WithData(ErrUnknownChannel, channel)
	}

	if duty == 0 {
		if err := pin.Out(gpio.Low); err != nil {
			return errFactory.Wrap(ErrPinSetup, err)
		}
		return nil
	}

	if err := pin.PWM(DutyFor(duty), f.frequency); err != nil {
		return errFactory.Wrap(ErrPinSetup, err)
	}

	return nil
}

// DutyFor converts an 8-bit duty into a periph duty cycle
func DutyFor(duty uint8) gpio.Duty {
	return gpio.Duty(int64(duty) * int64(gpio.DutyMax) / 255)
}
