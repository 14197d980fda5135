package metrics

import (
	"codeberg.org/mutker/airnode/internal/errors"
	"codeberg.org/mutker/airnode/internal/rpc"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "airnode"

// Collector exposes node activity as Prometheus metrics. It satisfies the
// scheduler observer and the command channel recorder.
type Collector struct {
	reportsSent     prometheus.Counter
	reportsFailed   prometheus.Counter
	climateFailures prometheus.Counter
	pollFailures    prometheus.Counter
	commands        *prometheus.CounterVec
	fanSpeed        prometheus.Gauge
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) (*Collector, error) {
	errFactory := errors.New()

	c := &Collector{
		reportsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_sent_total",
			Help:      "Telemetry snapshots accepted by the server.",
		}),
		reportsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_failed_total",
			Help:      "Telemetry snapshots that could not be delivered.",
		}),
		climateFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "climate_read_failures_total",
			Help:      "Climate sampling passes where every attempt was invalid.",
		}),
		pollFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_poll_failures_total",
			Help:      "Command polls that failed to resolve, connect or got an unexpected status.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands handled, by method.",
		}, []string{"method"}),
		fanSpeed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fan_speed",
			Help:      "Fan speed last applied to the driver (0-255).",
		}),
	}

	for _, collector := range []prometheus.Collector{
		c.reportsSent, c.reportsFailed, c.climateFailures, c.pollFailures, c.commands, c.fanSpeed,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, errFactory.Wrap(ErrRegisterFailed, err)
		}
	}

	return c, nil
}

func (c *Collector) ReportSent()    { c.reportsSent.Inc() }
func (c *Collector) ReportFailed()  { c.reportsFailed.Inc() }
func (c *Collector) ClimateFailed() { c.climateFailures.Inc() }
func (c *Collector) PollFailed()    { c.pollFailures.Inc() }

// CommandHandled counts a command. Unknown methods share one label value.
func (c *Collector) CommandHandled(method string) {
	switch method {
	case rpc.MethodGetValue, rpc.MethodSetValue:
	default:
		method = "other"
	}
	c.commands.WithLabelValues(method).Inc()
}

// SetFanSpeed records the applied fan speed
func (c *Collector) SetFanSpeed(speed int) {
	c.fanSpeed.Set(float64(speed))
}
