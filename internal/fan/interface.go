package fan

// Driver drives the physical actuator. Apply must be synchronous and
// idempotent: applying the same duty twice leaves the hardware unchanged.
type Driver interface {
	Apply(channel int, duty uint8) error
}

// Controller is the read/write contract shared by the scheduler and the
// command channel.
type Controller interface {
	Get() int
	Set(speed int) int
}

const (
	MinSpeed     = 0
	MaxSpeed     = 255
	DefaultSpeed = 128
)
