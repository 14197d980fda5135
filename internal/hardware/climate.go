package hardware

import (
	"math"

	"codeberg.org/mutker/airnode/internal/logger"
	"periph.io/x/conn/v3/physic"
)

// Sensor is the environmental sensing contract of a bmxx80 device
type Sensor interface {
	Sense(env *physic.Env) error
}

// Climate adapts a BME280 to sensor.Climate. Temperature and humidity come
// from the same measurement: ReadTemperature senses and ReadHumidity returns
// the humidity of that measurement.
type Climate struct {
	dev      Sensor
	logger   logger.Logger
	humidity float64
	pending  bool
}

func NewClimate(dev Sensor, log logger.Logger) *Climate {
	return &Climate{dev: dev, logger: log}
}

func (c *Climate) ReadTemperature() float64 {
	env, ok := c.sense()
	if !ok {
		c.pending = false
		return math.NaN()
	}

	c.humidity = humidityPercent(env.Humidity)
	c.pending = true

	return env.Temperature.Celsius()
}

func (c *Climate) ReadHumidity() float64 {
	if c.pending {
		c.pending = false
		return c.humidity
	}

	env, ok := c.sense()
	if !ok {
		return math.NaN()
	}

	return humidityPercent(env.Humidity)
}

func (c *Climate) sense() (physic.Env, bool) {
	var env physic.Env
	if err := c.dev.Sense(&env); err != nil {
		c.logger.Debug().Err(err).Msg("Climate sense failed")
		return env, false
	}

	return env, true
}

func humidityPercent(h physic.RelativeHumidity) float64 {
	return float64(h) / float64(physic.PercentRH)
}
