package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"codeberg.org/mutker/airnode/internal/cloud"
	"codeberg.org/mutker/airnode/internal/errors"
	"codeberg.org/mutker/airnode/internal/fan"
	"codeberg.org/mutker/airnode/internal/logger"
	"codeberg.org/mutker/airnode/internal/transport"
)

// Channel long-polls the device RPC endpoint and applies commands to the fan
type Channel struct {
	endpoints cloud.Endpoints
	client    transport.Client
	link      transport.Link
	resolver  transport.Resolver
	fan       fan.Controller
	opts      Options
	recorder  Recorder
	logger    logger.Logger
}

type ChannelOption func(*Channel)

func WithOptions(opts Options) ChannelOption {
	return func(c *Channel) {
		c.opts = opts
	}
}

func WithRecorder(r Recorder) ChannelOption {
	return func(c *Channel) {
		if r != nil {
			c.recorder = r
		}
	}
}

func NewChannel(
	endpoints cloud.Endpoints,
	client transport.Client,
	link transport.Link,
	resolver transport.Resolver,
	ctl fan.Controller,
	log logger.Logger,
	opts ...ChannelOption,
) *Channel {
	c := &Channel{
		endpoints: endpoints,
		client:    client,
		link:      link,
		resolver:  resolver,
		fan:       ctl,
		opts:      DefaultOptions(),
		recorder:  noopRecorder{},
		logger:    log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.opts.ResolveAttempts < 1 {
		c.opts.ResolveAttempts = 1
	}

	return c
}

// Run polls for commands until ctx is cancelled. No failure stops the loop.
func (c *Channel) Run(ctx context.Context) {
	c.logger.Info().
		Str("url", c.endpoints.RPC(c.opts.PollTimeout)).
		Dur("client_timeout", c.opts.ClientTimeout).
		Msg("Command channel started")

	for {
		pause := c.Poll(ctx)
		if !sleep(ctx, pause) {
			c.logger.Info().Msg("Command channel stopped")
			return
		}
	}
}

// Poll runs one iteration of the command loop and returns how long to wait
// before the next one.
func (c *Channel) Poll(ctx context.Context) time.Duration {
	errFactory := errors.New()

	if !c.link.Associated() {
		c.logger.Debug().Msg("Network not associated, waiting")
		return c.opts.OfflineBackoff
	}

	if err := c.resolve(ctx); err != nil {
		if ctx.Err() != nil {
			return 0
		}
		c.recorder.PollFailed()
		c.logger.ErrorWithCode(errFactory.Wrap(ErrResolveFailed, err)).
			Str("host", c.endpoints.Host()).
			Int("attempts", c.opts.ResolveAttempts).
			Msg("Server name resolution failed")
		return c.opts.ResolveBackoff
	}

	status, body, err := c.client.Get(ctx, c.endpoints.RPC(c.opts.PollTimeout), c.opts.ClientTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		c.recorder.PollFailed()
		c.logger.ErrorWithCode(errFactory.Wrap(ErrPollFailed, err)).Msg("Command poll failed")
		return c.opts.LoopPause
	}

	if status != http.StatusOK {
		// The server answers 408 when the hold budget expires with no command
		if status == http.StatusRequestTimeout {
			c.logger.Debug().Int("status", status).Msg("No command pending")
		} else {
			c.recorder.PollFailed()
			c.logger.Warn().Int("status", status).Msg("Unexpected command poll status")
		}
		return c.opts.LoopPause
	}

	req, err := DecodeRequest(body)
	if err != nil {
		var e errors.Error
		if errors.As(err, &e) {
			c.logger.ErrorWithCode(e).Int("bytes", len(body)).Msg("Discarded malformed command")
		}
		return c.opts.LoopPause
	}

	c.handle(ctx, req)

	return c.opts.LoopPause
}

func (c *Channel) handle(ctx context.Context, req Request) {
	errFactory := errors.New()

	resp := Dispatch(c.fan, req)
	c.recorder.CommandHandled(req.Method)

	c.logger.Info().
		Int("id", req.ID).
		Str("method", req.Method).
		RawJSON("params", paramsForLog(req.Params)).
		Int("result", resp.Result).
		Msg("Command handled")

	if resp.ID < 0 {
		return
	}

	body, err := json.Marshal(resp)
	if err != nil {
		c.logger.ErrorWithCode(errFactory.Wrap(ErrEncodeResponse, err)).Msg("Failed to encode reply")
		return
	}

	status, _, err := c.client.Post(ctx, c.endpoints.RPCReply(resp.ID), cloud.JSONHeaders(), body)
	if err != nil {
		c.logger.ErrorWithCode(errFactory.Wrap(ErrReplyFailed, err)).Int("id", resp.ID).Msg("Failed to send reply")
		return
	}
	if status < 200 || status >= 300 {
		c.logger.ErrorWithCode(errFactory.WithData(ErrBadStatus, status)).Int("id", resp.ID).Msg("Reply rejected")
	}
}

func (c *Channel) resolve(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= c.opts.ResolveAttempts; attempt++ {
		if err = c.resolver.Resolve(ctx, c.endpoints.Host()); err == nil {
			return nil
		}

		c.logger.Debug().Err(err).Int("attempt", attempt).Msg("Resolve attempt failed")

		if attempt < c.opts.ResolveAttempts && !sleep(ctx, c.opts.ResolveDelay) {
			return ctx.Err()
		}
	}

	return err
}

func paramsForLog(raw json.RawMessage) []byte {
	if len(raw) == 0 || !json.Valid(raw) {
		return []byte("null")
	}
	return raw
}

// sleep waits for d or ctx, reporting false when ctx ended first
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
