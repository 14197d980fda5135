package hardware

import (
	"math/rand/v2"
	"sync"

	"codeberg.org/mutker/airnode/internal/config"
	"codeberg.org/mutker/airnode/internal/logger"
	"codeberg.org/mutker/airnode/internal/sensor"
)

// SimClimate wanders slowly around indoor conditions
type SimClimate struct {
	rng         *rand.Rand
	temperature float64
	humidity    float64
}

func NewSimClimate(seed uint64) *SimClimate {
	return &SimClimate{
		rng:         rand.New(rand.NewPCG(seed, 1)),
		temperature: 22,
		humidity:    45,
	}
}

func (c *SimClimate) ReadTemperature() float64 {
	c.temperature = walk(c.rng, c.temperature, 0.1, 15, 35)
	return c.temperature
}

func (c *SimClimate) ReadHumidity() float64 {
	c.humidity = walk(c.rng, c.humidity, 0.5, 20, 80)
	return c.humidity
}

// SimAnalog returns noisy samples around a per channel level
type SimAnalog struct {
	rng    *rand.Rand
	levels map[int]float64
}

func NewSimAnalog(seed uint64, levels map[int]float64) *SimAnalog {
	return &SimAnalog{
		rng:    rand.New(rand.NewPCG(seed, 2)),
		levels: levels,
	}
}

func (a *SimAnalog) ReadAnalog(channel int) int {
	level, ok := a.levels[channel]
	if !ok {
		return -1
	}
	a.levels[channel] = walk(a.rng, level, 20, 0, sensor.MaxRaw)
	return int(a.levels[channel])
}

// SimRanger reports a distance that drifts and sometimes loses the echo
type SimRanger struct {
	rng      *rand.Rand
	distance float64
}

func NewSimRanger(seed uint64) *SimRanger {
	return &SimRanger{
		rng:      rand.New(rand.NewPCG(seed, 3)),
		distance: 80,
	}
}

func (r *SimRanger) Distance() float64 {
	if r.rng.IntN(20) == 0 {
		return sensor.NoEcho
	}
	r.distance = walk(r.rng, r.distance, 2, 5, 400)
	return r.distance
}

// LogFan records duty changes instead of driving a pin
type LogFan struct {
	logger logger.Logger
	mu     sync.Mutex
	duty   map[int]uint8
}

func NewLogFan(log logger.Logger) *LogFan {
	return &LogFan{logger: log, duty: make(map[int]uint8)}
}

func (f *LogFan) Apply(channel int, duty uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if prev, ok := f.duty[channel]; !ok || prev != duty {
		f.logger.Info().Int("channel", channel).Uint8("duty", duty).Msg("Simulated fan duty")
	}
	f.duty[channel] = duty

	return nil
}

// Duty returns the last duty applied to channel
func (f *LogFan) Duty(channel int) (uint8, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.duty[channel]
	return d, ok
}

func openSim(hw config.HardwareConfig, _ config.FanConfig, log logger.Logger) *Board {
	const seed = 0x5eed

	log.Info().Msg("Using simulated hardware")

	return &Board{
		Sensors: sensor.Hardware{
			Climate: NewSimClimate(seed),
			Analog: NewSimAnalog(seed, map[int]float64{
				hw.GasChannel:   1200,
				hw.LightChannel: 2600,
			}),
			Ranger:       NewSimRanger(seed),
			GasChannel:   hw.GasChannel,
			LightChannel: hw.LightChannel,
		},
		Fan:    NewLogFan(log),
		logger: log,
	}
}

func walk(rng *rand.Rand, v, step, lo, hi float64) float64 {
	v += (rng.Float64()*2 - 1) * step
	return min(max(v, lo), hi)
}
