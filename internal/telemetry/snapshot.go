package telemetry

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"codeberg.org/mutker/airnode/internal/sensor"
)

// AuxSource generates the simulated NH3, CO2 and TD values. It is not safe
// for concurrent use.
type AuxSource struct {
	rng *rand.Rand
}

func NewAuxSource(seed uint64) *AuxSource {
	return &AuxSource{rng: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

// Next draws one set of values within the documented ranges
func (a *AuxSource) Next() Auxiliary {
	return Auxiliary{
		NH3: MinNH3 + float64(a.rng.IntN(101))/100,
		CO2: MinCO2 + float64(a.rng.IntN(int(MaxCO2-MinCO2)+1)),
		TD:  MinTD + float64(a.rng.IntN(int(MaxTD-MinTD)+1)),
	}
}

// Build assembles a snapshot from the cache, the fan speed and the
// auxiliary values. Unknown climate values become NaN, other unknown
// readings report zero.
func Build(cache *sensor.Cache, fanSpeed int, aux Auxiliary, now time.Time) Snapshot {
	value := func(kind sensor.Kind, unknown float64) float64 {
		if r := cache.Read(kind); r.Valid {
			return r.Value
		}
		return unknown
	}

	return Snapshot{
		Timestamp:   now,
		Temperature: value(sensor.Temperature, math.NaN()),
		Humidity:    value(sensor.Humidity, math.NaN()),
		Gas:         value(sensor.Gas, 0),
		NH3:         aux.NH3,
		CO2:         aux.CO2,
		TD:          aux.TD,
		Light:       LightPercent(int(value(sensor.Light, 0))),
		Distance:    value(sensor.Distance, 0),
		FanSpeed:    fanSpeed,
	}
}

// LightPercent maps a raw 12-bit light sample onto 0..100
func LightPercent(raw int) int {
	pct := raw * 100 / sensor.MaxRaw
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}

	return pct
}

// decimal renders a float with a fixed number of decimals, or null for NaN
type decimal struct {
	v    float64
	prec int
}

func (d decimal) MarshalJSON() ([]byte, error) {
	if math.IsNaN(d.v) || math.IsInf(d.v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, d.v, 'f', d.prec, 64), nil
}

type wireSnapshot struct {
	Temperature decimal `json:"temperature_c"`
	Humidity    decimal `json:"humidity_percent"`
	NH3         decimal `json:"nh3_ppm"`
	CO2         decimal `json:"co2_ppm"`
	Light       int     `json:"ldr"`
	Distance    decimal `json:"distance_cm"`
	TD          decimal `json:"td"`
	FanSpeed    int     `json:"fan_speed"`
}

// MarshalJSON encodes the snapshot in the telemetry wire format
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireSnapshot{
		Temperature: decimal{s.Temperature, 2},
		Humidity:    decimal{s.Humidity, 2},
		NH3:         decimal{s.NH3, 2},
		CO2:         decimal{s.CO2, 0},
		Light:       s.Light,
		Distance:    decimal{s.Distance, 2},
		TD:          decimal{s.TD, 0},
		FanSpeed:    s.FanSpeed,
	})
}
