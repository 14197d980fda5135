package rpc

import (
	"encoding/json"
	"time"
)

const (
	MethodGetValue = "getValue"
	MethodSetValue = "setValue"

	// NoID marks a request that carried no id and gets no reply
	NoID = -1
)

const (
	DefaultPollTimeout     = 60 * time.Second
	DefaultClientTimeout   = 65 * time.Second
	DefaultOfflineBackoff  = time.Second
	DefaultResolveAttempts = 3
	DefaultResolveDelay    = 500 * time.Millisecond
	DefaultResolveBackoff  = 2 * time.Second
	DefaultLoopPause       = 100 * time.Millisecond
)

// Request is one command fetched from the long-poll endpoint
type Request struct {
	ID     int
	Method string
	Params json.RawMessage
}

// Response is the result of dispatching a Request
type Response struct {
	ID     int
	Method string
	Result int
}

// Recorder receives command channel events, typically for metrics
type Recorder interface {
	CommandHandled(method string)
	PollFailed()
}

// Options tunes the command loop timings
type Options struct {
	PollTimeout     time.Duration
	ClientTimeout   time.Duration
	OfflineBackoff  time.Duration
	ResolveAttempts int
	ResolveDelay    time.Duration
	ResolveBackoff  time.Duration
	LoopPause       time.Duration
}

func DefaultOptions() Options {
	return Options{
		PollTimeout:     DefaultPollTimeout,
		ClientTimeout:   DefaultClientTimeout,
		OfflineBackoff:  DefaultOfflineBackoff,
		ResolveAttempts: DefaultResolveAttempts,
		ResolveDelay:    DefaultResolveDelay,
		ResolveBackoff:  DefaultResolveBackoff,
		LoopPause:       DefaultLoopPause,
	}
}

type noopRecorder struct{}

func (noopRecorder) CommandHandled(string) {}
func (noopRecorder) PollFailed()           {}
