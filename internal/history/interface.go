package history

import (
	"context"
	"time"

	"codeberg.org/mutker/airnode/internal/telemetry"
)

// Recorder appends reports to the history log
type Recorder interface {
	Record(ctx context.Context, snapshot telemetry.Snapshot, delivered bool) error
	Close() error
}

// Repository stores history entries
type Repository interface {
	Record(entry *Entry) error
	Close() error
}

// Entry is one report as it was built and whether the server accepted it
type Entry struct {
	Timestamp time.Time
	Snapshot  telemetry.Snapshot
	Delivered bool
}
