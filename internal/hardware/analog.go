package hardware

import (
	"codeberg.org/mutker/airnode/internal/logger"
	"codeberg.org/mutker/airnode/internal/sensor"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
)

// FullScale is the voltage mapped to the top of the 12-bit range
const FullScale = 3300 * physic.MilliVolt

// Analog maps ADC pins to 12-bit samples, indexed by channel
type Analog struct {
	pins   map[int]analog.PinADC
	scale  physic.ElectricPotential
	logger logger.Logger
}

func NewAnalog(pins map[int]analog.PinADC, scale physic.ElectricPotential, log logger.Logger) *Analog {
	if scale <= 0 {
		scale = FullScale
	}

	return &Analog{pins: pins, scale: scale, logger: log}
}

// ReadAnalog returns the sample scaled to [0, 4095], or -1 when the channel
// is not wired or the conversion failed.
func (a *Analog) ReadAnalog(channel int) int {
	pin, ok := a.pins[channel]
	if !ok {
		return -1
	}

	sample, err := pin.Read()
	if err != nil {
		a.logger.Debug().Err(err).Int("channel", channel).Msg("Analog read failed")
		return -1
	}

	return ToRaw(sample.V, a.scale)
}

// ToRaw scales v against fullScale onto the 12-bit range, clamped
func ToRaw(v, fullScale physic.ElectricPotential) int {
	if v <= 0 {
		return 0
	}
	if v >= fullScale {
		return sensor.MaxRaw
	}

	return int(int64(v) * sensor.MaxRaw / int64(fullScale))
}
