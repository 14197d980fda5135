package scheduler

import (
	"context"
	"time"

	"codeberg.org/mutker/airnode/internal/telemetry"
)

const (
	DefaultSampleInterval  = time.Second
	DefaultClimateInterval = 2 * time.Second
	DefaultReportInterval  = 5 * time.Second
	DefaultSendTimeout     = 10 * time.Second
)

// History stores each report and whether it was delivered
type History interface {
	Record(ctx context.Context, snapshot telemetry.Snapshot, delivered bool) error
}

// Observer is notified of scheduler outcomes
type Observer interface {
	ReportSent()
	ReportFailed()
	ClimateFailed()
}

type Intervals struct {
	Sample  time.Duration
	Climate time.Duration
	Report  time.Duration
}

func DefaultIntervals() Intervals {
	return Intervals{
		Sample:  DefaultSampleInterval,
		Climate: DefaultClimateInterval,
		Report:  DefaultReportInterval,
	}
}

// Pass lists the gates that fired during one Tick
type Pass struct {
	Sample  bool
	Climate bool
	Report  bool
}

type noopHistory struct{}

func (noopHistory) Record(context.Context, telemetry.Snapshot, bool) error { return nil }

type noopObserver struct{}

func (noopObserver) ReportSent()    {}
func (noopObserver) ReportFailed()  {}
func (noopObserver) ClimateFailed() {}
