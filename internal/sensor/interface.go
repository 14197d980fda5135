package sensor

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Climate reads the combined temperature/humidity sensor. Both methods
// return NaN when the sensor did not produce a reading.
type Climate interface {
	ReadTemperature() float64
	ReadHumidity() float64
}

// Analog reads a raw 12-bit sample in [0, 4095] from an ADC channel.
// A negative value signals a failed conversion.
type Analog interface {
	ReadAnalog(channel int) int
}

// Ranger measures distance in centimeters, returning NoEcho on timeout.
type Ranger interface {
	Distance() float64
}

// TriggerPin is the output side of an ultrasonic ranger
type TriggerPin interface {
	Out(l gpio.Level) error
}

// EchoPin is the input side of an ultrasonic ranger, configured for both edges
type EchoPin interface {
	Read() gpio.Level
	WaitForEdge(timeout time.Duration) bool
}

// Kind identifies a cached sensor value
type Kind int

const (
	Temperature Kind = iota
	Humidity
	Gas
	Light
	Distance
)

var kindNames = [...]string{
	Temperature: "temperature",
	Humidity:    "humidity",
	Gas:         "gas",
	Light:       "light",
	Distance:    "distance",
}

// Kinds lists every cached sensor kind
var Kinds = []Kind{Temperature, Humidity, Gas, Light, Distance}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Reading is a cached value. Valid is false until the first accepted sample.
type Reading struct {
	Value float64
	Valid bool
	At    time.Time
}
