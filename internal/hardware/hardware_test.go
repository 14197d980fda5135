package hardware

import (
	stderrors "errors"
	"math"
	"testing"

	"codeberg.org/mutker/airnode/internal/config"
	"codeberg.org/mutker/airnode/internal/errors"
	"codeberg.org/mutker/airnode/internal/logger"
	"codeberg.org/mutker/airnode/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"
)

type fakeSensor struct {
	env   physic.Env
	err   error
	calls int
}

func (s *fakeSensor) Sense(env *physic.Env) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	*env = s.env
	return nil
}

type fakeADC struct {
	pin.Pin
	sample analog.Sample
	err    error
}

func (a *fakeADC) Range() (analog.Sample, analog.Sample) { return analog.Sample{}, analog.Sample{} }
func (a *fakeADC) Read() (analog.Sample, error)          { return a.sample, a.err }

func TestClimateSharesMeasurement(t *testing.T) {
	dev := &fakeSensor{env: physic.Env{
		Temperature: physic.ZeroCelsius + 23*physic.Kelvin,
		Humidity:    41 * physic.PercentRH,
	}}
	c := NewClimate(dev, logger.Default())

	assert.InDelta(t, 23, c.ReadTemperature(), 0.001)
	assert.InDelta(t, 41, c.ReadHumidity(), 0.001)
	assert.Equal(t, 1, dev.calls)

	// A humidity read without a preceding temperature read senses again
	assert.InDelta(t, 41, c.ReadHumidity(), 0.001)
	assert.Equal(t, 2, dev.calls)
}

func TestClimateFailureIsNaN(t *testing.T) {
	dev := &fakeSensor{err: stderrors.New("i2c nack")}
	c := NewClimate(dev, logger.Default())

	assert.True(t, math.IsNaN(c.ReadTemperature()))
	assert.True(t, math.IsNaN(c.ReadHumidity()))
}

func TestToRaw(t *testing.T) {
	tests := []struct {
		v    physic.ElectricPotential
		want int
	}{
		{-100 * physic.MilliVolt, 0},
		{0, 0},
		{1650 * physic.MilliVolt, 2047},
		{FullScale, sensor.MaxRaw},
		{5 * physic.Volt, sensor.MaxRaw},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ToRaw(tt.v, FullScale), "voltage %s", tt.v)
	}
}

func TestAnalogChannels(t *testing.T) {
	a := NewAnalog(map[int]analog.PinADC{
		0: &fakeADC{sample: analog.Sample{V: 3300 * physic.MilliVolt}},
		1: &fakeADC{err: stderrors.New("conversion timeout")},
	}, FullScale, logger.Default())

	assert.Equal(t, sensor.MaxRaw, a.ReadAnalog(0))
	assert.Equal(t, -1, a.ReadAnalog(1))
	assert.Equal(t, -1, a.ReadAnalog(3))
}

func TestDutyFor(t *testing.T) {
	assert.Equal(t, gpio.Duty(0), DutyFor(0))
	assert.Equal(t, gpio.DutyMax, DutyFor(255))
	assert.Equal(t, gpio.Duty(int64(gpio.DutyMax)*128/255), DutyFor(128))
}

func TestPWMFan(t *testing.T) {
	pwm := &gpiotest.Pin{N: "PWM"}
	in1 := &gpiotest.Pin{N: "IN1"}
	in2 := &gpiotest.Pin{N: "IN2", L: gpio.High}

	f, err := NewPWMFan(map[int]gpio.PinOut{0: pwm}, in1, in2, 0, logger.Default())
	require.NoError(t, err)

	assert.Equal(t, gpio.High, in1.L)
	assert.Equal(t, gpio.Low, in2.L)

	require.NoError(t, f.Apply(0, 128))
	assert.Equal(t, DutyFor(128), pwm.D)
	assert.Equal(t, DefaultPWMFrequency, pwm.F)

	require.NoError(t, f.Apply(0, 0))
	assert.Equal(t, gpio.Low, pwm.L)

	err = f.Apply(2, 10)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrUnknownChannel))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(config.HardwareConfig{Driver: "gpio-magic"}, config.FanConfig{}, logger.Default())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrUnknownDriver))
}

func TestSimBoard(t *testing.T) {
	board, err := Open(config.HardwareConfig{Driver: DriverSim, GasChannel: 0, LightChannel: 1}, config.FanConfig{}, logger.Default())
	require.NoError(t, err)
	defer board.Close()

	for range 50 {
		assert.True(t, sensor.IsValid(sensor.Temperature, board.Sensors.Climate.ReadTemperature()))
		assert.True(t, sensor.IsValid(sensor.Humidity, board.Sensors.Climate.ReadHumidity()))
		assert.True(t, sensor.IsValid(sensor.Gas, float64(board.Sensors.Analog.ReadAnalog(0))))
		assert.True(t, sensor.IsValid(sensor.Light, float64(board.Sensors.Analog.ReadAnalog(1))))
		assert.True(t, sensor.IsValid(sensor.Distance, board.Sensors.Ranger.Distance()))
	}

	require.NoError(t, board.Fan.Apply(0, 200))
	duty, ok := board.Fan.(*LogFan).Duty(0)
	require.True(t, ok)
	assert.Equal(t, uint8(200), duty)
}

func TestBoardCloseOrder(t *testing.T) {
	var order []int
	b := &Board{logger: logger.Default()}
	b.onClose(func() error { order = append(order, 1); return nil })
	b.onClose(func() error { order = append(order, 2); return stderrors.New("busy") })

	err := b.Close()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrShutdown))
	assert.Equal(t, []int{2, 1}, order)
}
