package hardware

import (
	"codeberg.org/mutker/airnode/internal/config"
	"codeberg.org/mutker/airnode/internal/errors"
	"codeberg.org/mutker/airnode/internal/logger"
	"codeberg.org/mutker/airnode/internal/sensor"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

const adcSampleRate = 128 * physic.Hertz

var adcChannels = []ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

func openPeriph(hw config.HardwareConfig, fc config.FanConfig, log logger.Logger) (board *Board, err error) {
	errFactory := errors.New()

	if _, err := host.Init(); err != nil {
		return nil, errFactory.Wrap(ErrHostInit, err)
	}

	board = &Board{logger: log}
	defer func() {
		if err != nil {
			board.Close()
		}
	}()

	bus, err := i2creg.Open(hw.I2CBus)
	if err != nil {
		return nil, errFactory.Wrap(ErrBusOpen, err)
	}
	board.onClose(bus.Close)

	bme, err := bmxx80.NewI2C(bus, hw.BME280Address, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, errFactory.WithData(ErrDeviceInit, struct {
			Device string
			Error  string
		}{
			Device: "bme280",
			Error:  err.Error(),
		})
	}
	board.onClose(bme.Halt)

	adc, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: hw.ADS1115Address})
	if err != nil {
		return nil, errFactory.WithData(ErrDeviceInit, struct {
			Device string
			Error  string
		}{
			Device: "ads1115",
			Error:  err.Error(),
		})
	}
	board.onClose(adc.Halt)

	pins := make(map[int]analog.PinADC, 2)
	for _, ch := range []int{hw.GasChannel, hw.LightChannel} {
		if _, ok := pins[ch]; ok {
			continue
		}
		if ch < 0 || ch >= len(adcChannels) {
			return nil, errFactory.WithData(ErrUnknownChannel, ch)
		}

		pin, err := adc.PinForChannel(adcChannels[ch], FullScale, adcSampleRate, ads1x15.BestQuality)
		if err != nil {
			return nil, errFactory.Wrap(ErrDeviceInit, err)
		}
		board.onClose(pin.Halt)
		pins[ch] = pin
	}

	trigger, err := pinByName(hw.TriggerPin)
	if err != nil {
		return nil, err
	}
	if err := trigger.Out(gpio.Low); err != nil {
		return nil, errFactory.Wrap(ErrPinSetup, err)
	}

	echo, err := pinByName(hw.EchoPin)
	if err != nil {
		return nil, err
	}
	if err := echo.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return nil, errFactory.Wrap(ErrPinSetup, err)
	}

	pwm, err := pinByName(fc.PWMPin)
	if err != nil {
		return nil, err
	}
	in1, err := pinByName(fc.IN1Pin)
	if err != nil {
		return nil, err
	}
	in2, err := pinByName(fc.IN2Pin)
	if err != nil {
		return nil, err
	}

	driver, err := NewPWMFan(map[int]gpio.PinOut{fc.Channel: pwm}, in1, in2, physic.Frequency(fc.Frequency)*physic.Hertz, log)
	if err != nil {
		return nil, err
	}
	board.onClose(func() error { return pwm.Halt() })

	board.Sensors = sensor.Hardware{
		Climate:      NewClimate(bme, log),
		Analog:       NewAnalog(pins, FullScale, log),
		Ranger:       sensor.NewEchoRanger(trigger, echo, hw.EchoTimeout, log),
		GasChannel:   hw.GasChannel,
		LightChannel: hw.LightChannel,
	}
	board.Fan = driver

	log.Info().
		Str("i2c_bus", bus.String()).
		Uint16("bme280_address", hw.BME280Address).
		Uint16("ads1115_address", hw.ADS1115Address).
		Str("pwm_pin", fc.PWMPin).
		Int("pwm_frequency", fc.Frequency).
		Msg("Hardware initialized")

	return board, nil
}

func pinByName(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, errors.New().WithData(ErrPinNotFound, name)
	}
	return pin, nil
}
