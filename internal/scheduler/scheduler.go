package scheduler

import (
	"context"
	"time"

	"codeberg.org/mutker/airnode/internal/errors"
	"codeberg.org/mutker/airnode/internal/fan"
	"codeberg.org/mutker/airnode/internal/logger"
	"codeberg.org/mutker/airnode/internal/sensor"
	"codeberg.org/mutker/airnode/internal/telemetry"
)

// Scheduler drives sampling and reporting from a single goroutine. The
// sample, climate and report gates are independent; all due gates run in that
// order within one pass.
type Scheduler struct {
	sampler  *sensor.Sampler
	fan      fan.Controller
	aux      *telemetry.AuxSource
	sink     telemetry.Sink
	history  History
	observer Observer
	logger   logger.Logger

	sample  Gate
	climate Gate
	report  Gate

	sendTimeout time.Duration
	now         func() time.Time
	started     bool
}

type Option func(*Scheduler)

func WithHistory(h History) Option {
	return func(s *Scheduler) {
		if h != nil {
			s.history = h
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observer = o
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithSendTimeout bounds each telemetry submission
func WithSendTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.sendTimeout = d
		}
	}
}

func New(
	sampler *sensor.Sampler,
	ctl fan.Controller,
	aux *telemetry.AuxSource,
	sink telemetry.Sink,
	intervals Intervals,
	log logger.Logger,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		sampler:     sampler,
		fan:         ctl,
		aux:         aux,
		sink:        sink,
		history:     noopHistory{},
		observer:    noopObserver{},
		logger:      log,
		sample:      Gate{Interval: intervals.Sample},
		climate:     Gate{Interval: intervals.Climate},
		report:      Gate{Interval: intervals.Report},
		sendTimeout: DefaultSendTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start arms every gate at now. Each gate first fires one interval later.
func (s *Scheduler) Start(now time.Time) {
	s.sample.Fire(now)
	s.climate.Fire(now)
	s.report.Fire(now)
	s.started = true
}

// NextDeadline is the earliest instant at which any gate expires
func (s *Scheduler) NextDeadline() time.Time {
	next := s.sample.Next()
	for _, g := range []*Gate{&s.climate, &s.report} {
		if g.Next().Before(next) {
			next = g.Next()
		}
	}

	return next
}

// Tick runs one scheduling pass at now
func (s *Scheduler) Tick(ctx context.Context, now time.Time) Pass {
	if !s.started {
		s.Start(now)
	}

	var pass Pass

	if s.sample.Due(now) {
		s.sampler.SampleAmbient()
		s.sample.Fire(now)
		pass.Sample = true
	}

	if s.climate.Due(now) {
		if !s.sampler.SampleClimate(ctx) && ctx.Err() == nil {
			s.observer.ClimateFailed()
			s.logger.Debug().Msg("Climate read failed, keeping cached values")
		}
		s.climate.Fire(now)
		pass.Climate = true
	}

	if s.report.Due(now) {
		s.sendReport(ctx, now)
		s.report.Fire(now)
		pass.Report = true
	}

	return pass
}

// Run schedules passes until ctx is cancelled, sleeping until the next gate
// deadline between passes.
func (s *Scheduler) Run(ctx context.Context) {
	s.Start(s.now())

	s.logger.Info().
		Dur("sample_interval", s.sample.Interval).
		Dur("climate_interval", s.climate.Interval).
		Dur("report_interval", s.report.Interval).
		Msg("Scheduler started")

	for {
		wait := s.NextDeadline().Sub(s.now())
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("Scheduler stopped")
			return
		case <-timer.C:
		}

		s.Tick(ctx, s.now())
	}
}

func (s *Scheduler) sendReport(ctx context.Context, now time.Time) {
	errFactory := errors.New()

	snapshot := telemetry.Build(s.sampler.Cache(), s.fan.Get(), s.aux.Next(), now)
	s.logSummary(snapshot)

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	err := s.sink.Send(sendCtx, snapshot)
	cancel()

	delivered := err == nil
	if delivered {
		s.observer.ReportSent()
		s.logger.Debug().Msg("Telemetry sent")
	} else {
		s.observer.ReportFailed()
		s.logger.ErrorWithCode(errFactory.Wrap(ErrReportFailed, err)).Msg("Telemetry not delivered")
	}

	if err := s.history.Record(ctx, snapshot, delivered); err != nil {
		s.logger.ErrorWithCode(errFactory.Wrap(ErrHistoryFailed, err)).Msg("Failed to record history")
	}
}

func (s *Scheduler) logSummary(snapshot telemetry.Snapshot) {
	s.logger.Info().
		Float64("temperature_c", snapshot.Temperature).
		Float64("humidity_percent", snapshot.Humidity).
		Float64("gas_raw", snapshot.Gas).
		Float64("nh3_ppm", snapshot.NH3).
		Float64("co2_ppm", snapshot.CO2).
		Float64("td", snapshot.TD).
		Int("ldr", snapshot.Light).
		Float64("distance_cm", snapshot.Distance).
		Int("fan_speed", snapshot.FanSpeed).
		Msg("Sensors")
}
