package hardware

import (
	"codeberg.org/mutker/airnode/internal/config"
	"codeberg.org/mutker/airnode/internal/errors"
	"codeberg.org/mutker/airnode/internal/fan"
	"codeberg.org/mutker/airnode/internal/logger"
	"codeberg.org/mutker/airnode/internal/sensor"
)

const (
	DriverPeriph = "periph"
	DriverSim    = "sim"
)

// Board is the set of sensors and the fan driver of one node
type Board struct {
	Sensors sensor.Hardware
	Fan     fan.Driver

	closers []func() error
	logger  logger.Logger
}

// Open initializes the hardware selected by hw.Driver
func Open(hw config.HardwareConfig, fc config.FanConfig, log logger.Logger) (*Board, error) {
	switch hw.Driver {
	case DriverPeriph:
		return openPeriph(hw, fc, log)
	case DriverSim:
		return openSim(hw, fc, log), nil
	default:
		return nil, errors.New().WithData(ErrUnknownDriver, hw.Driver)
	}
}

// Close releases devices in reverse order of acquisition
func (b *Board) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			b.logger.Warn().Err(err).Msg("Failed to release hardware")
			if first == nil {
				first = errors.New().Wrap(ErrShutdown, err)
			}
		}
	}
	b.closers = nil

	return first
}

func (b *Board) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}
