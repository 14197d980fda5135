package telemetry

import (
	"context"
	"time"
)

// Sink delivers a snapshot to the remote service
type Sink interface {
	Send(ctx context.Context, snapshot Snapshot) error
}

// Snapshot is the immutable set of values reported in one telemetry send
type Snapshot struct {
	Timestamp   time.Time
	Temperature float64 // NaN when unknown
	Humidity    float64 // NaN when unknown
	Gas         float64
	NH3         float64
	CO2         float64
	TD          float64
	Light       int // percent
	Distance    float64
	FanSpeed    int
}

// Auxiliary holds the simulated air quality values attached to a snapshot
type Auxiliary struct {
	NH3 float64
	CO2 float64
	TD  float64
}

// Documented ranges of the simulated values
const (
	MinNH3 = 6.00
	MaxNH3 = 7.00
	MinCO2 = 1500.0
	MaxCO2 = 1550.0
	MinTD  = 1200.0
	MaxTD  = 1220.0
)
