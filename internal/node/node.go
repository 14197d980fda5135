package node

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/airnode/internal/cloud"
	"codeberg.org/mutker/airnode/internal/config"
	"codeberg.org/mutker/airnode/internal/errors"
	"codeberg.org/mutker/airnode/internal/fan"
	"codeberg.org/mutker/airnode/internal/hardware"
	"codeberg.org/mutker/airnode/internal/history"
	"codeberg.org/mutker/airnode/internal/logger"
	"codeberg.org/mutker/airnode/internal/metrics"
	"codeberg.org/mutker/airnode/internal/rpc"
	"codeberg.org/mutker/airnode/internal/scheduler"
	"codeberg.org/mutker/airnode/internal/sensor"
	"codeberg.org/mutker/airnode/internal/telemetry"
	"codeberg.org/mutker/airnode/internal/transport"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	TransportHTTP = "http"
	TransportMQTT = "mqtt"

	bootNetworkWait = 10 * time.Second
	bootNetworkPoll = 500 * time.Millisecond
	shutdownTimeout = 5 * time.Second
)

// Node owns the hardware, the fan state and the two worker goroutines
type Node struct {
	cfg    *config.Config
	logger logger.Logger

	board     *hardware.Board
	fan       *fan.State
	scheduler *scheduler.Scheduler
	channel   *rpc.Channel
	history   history.Recorder
	collector *metrics.Collector
	registry  *prometheus.Registry
	server    *metrics.Server
	mqtt      *cloud.MQTTSink
	link      transport.Link
}

type Option func(*options)

type options struct {
	link     transport.Link
	resolver transport.Resolver
	client   transport.Client
}

// WithLink overrides the network link check
func WithLink(link transport.Link) Option {
	return func(o *options) {
		o.link = link
	}
}

// WithResolver overrides server name resolution
func WithResolver(r transport.Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithClient overrides the HTTP client
func WithClient(c transport.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// New builds a node from cfg. Hardware and history failures are returned;
// nothing is started until Run.
func New(cfg *config.Config, log logger.Logger, opts ...Option) (n *Node, err error) {
	errFactory := errors.New()

	o := options{
		link:     transport.InterfaceLink{Name: cfg.NetworkInterface},
		resolver: transport.NewNetResolver(transport.DefaultResolveTimeout),
		client:   transport.NewRestyClient(cfg.Telemetry.SendTimeout),
	}
	for _, opt := range opts {
		opt(&o)
	}

	endpoints, err := cloud.NewEndpoints(cfg.ServerURL, cfg.DeviceToken)
	if err != nil {
		return nil, errFactory.Wrap(ErrInitNode, err)
	}

	n = &Node{
		cfg:      cfg,
		logger:   log,
		registry: prometheus.NewRegistry(),
		link:     o.link,
	}
	defer func() {
		if err != nil {
			n.release()
		}
	}()

	n.collector, err = metrics.New(n.registry)
	if err != nil {
		return nil, errFactory.Wrap(ErrInitNode, err)
	}

	n.board, err = hardware.Open(cfg.Hardware, cfg.Fan, log)
	if err != nil {
		return nil, errFactory.Wrap(ErrInitNode, err)
	}

	n.history, err = history.NewService(history.Config{
		DBPath:       cfg.History.DBPath,
		Enabled:      cfg.History.Enabled,
		BatchSize:    cfg.History.BatchSize,
		BatchTimeout: cfg.History.BatchTimeout,
	}, log)
	if err != nil {
		return nil, errFactory.Wrap(ErrInitNode, err)
	}

	sink, err := n.newSink(endpoints, o)
	if err != nil {
		return nil, err
	}

	n.fan = fan.NewState(n.board.Fan, cfg.Fan.InitialSpeed, log,
		fan.WithChannel(cfg.Fan.Channel),
		fan.WithObserver(n.collector.SetFanSpeed))

	sampler := sensor.NewSampler(n.board.Sensors, sensor.NewCache(), cfg.ClimateAttempts, cfg.ClimatePause, log)

	n.scheduler = scheduler.New(sampler, n.fan, telemetry.NewAuxSource(uint64(time.Now().UnixNano())), sink,
		scheduler.Intervals{
			Sample:  cfg.SampleInterval,
			Climate: cfg.ClimateInterval,
			Report:  cfg.ReportInterval,
		}, log,
		scheduler.WithHistory(n.history),
		scheduler.WithObserver(n.collector),
		scheduler.WithSendTimeout(cfg.Telemetry.SendTimeout))

	n.channel = rpc.NewChannel(endpoints, o.client, o.link, o.resolver, n.fan, log,
		rpc.WithOptions(rpc.Options{
			PollTimeout:     cfg.RPC.PollTimeout,
			ClientTimeout:   cfg.RPC.ClientTimeout,
			OfflineBackoff:  cfg.RPC.OfflineBackoff,
			ResolveAttempts: cfg.RPC.ResolveAttempts,
			ResolveDelay:    cfg.RPC.ResolveDelay,
			ResolveBackoff:  cfg.RPC.ResolveBackoff,
			LoopPause:       cfg.RPC.LoopPause,
		}),
		rpc.WithRecorder(n.collector))

	if cfg.Metrics.ListenAddr != "" {
		n.server = metrics.NewServer(cfg.Metrics.ListenAddr, n.registry, log)
	}

	return n, nil
}

func (n *Node) newSink(endpoints cloud.Endpoints, o options) (telemetry.Sink, error) {
	switch n.cfg.Telemetry.Transport {
	case TransportHTTP, "":
		return cloud.NewHTTPSink(endpoints, o.client, o.link), nil
	case TransportMQTT:
		n.mqtt = cloud.NewMQTTSink(cloud.MQTTOptions{
			Broker:   n.cfg.MQTT.Broker,
			Port:     n.cfg.MQTT.Port,
			ClientID: n.cfg.MQTT.ClientID,
			Token:    n.cfg.DeviceToken,
		}, n.logger)
		return n.mqtt, nil
	default:
		return nil, errors.New().WithData(ErrUnknownSink, n.cfg.Telemetry.Transport)
	}
}

// Fan exposes the shared fan state
func (n *Node) Fan() *fan.State {
	return n.fan
}

// Registry is the Prometheus registry holding the node's collectors
func (n *Node) Registry() *prometheus.Registry {
	return n.registry
}

// Run boots the node and blocks until ctx is cancelled and both workers
// have returned. Resources are released before returning.
func (n *Node) Run(ctx context.Context) error {
	defer n.release()

	n.boot()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		n.scheduler.Run(ctx)
	}()

	go func() {
		defer wg.Done()
		n.connect(ctx)
		n.channel.Run(ctx)
	}()

	wg.Wait()

	return nil
}

func (n *Node) boot() {
	n.fan.Apply()
	n.logger.Info().Int("speed", n.fan.Get()).Int("channel", n.cfg.Fan.Channel).Msg("Fan started")

	if n.server != nil {
		if err := n.server.Start(); err != nil {
			n.logger.Warn().Err(err).Msg("Metrics server not started")
		}
	}
}

// connect waits a bounded time for the network before the transports start.
// Sampling does not wait for it.
func (n *Node) connect(ctx context.Context) {
	if transport.WaitAssociated(ctx, n.link, bootNetworkPoll, bootNetworkWait) {
		n.logger.Info().Msg("Network associated")
	} else if ctx.Err() == nil {
		n.logger.Warn().Dur("waited", bootNetworkWait).Msg("Network not associated, continuing offline")
	}

	if n.mqtt != nil {
		go func() {
			if err := n.mqtt.Connect(ctx); err != nil {
				n.logger.Warn().Err(err).Msg("MQTT connect abandoned")
			}
		}()
	}
}

func (n *Node) release() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if n.server != nil {
		if err := n.server.Shutdown(ctx); err != nil {
			n.logger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
		n.server = nil
	}
	if n.mqtt != nil {
		n.mqtt.Close()
		n.mqtt = nil
	}
	if n.history != nil {
		if err := n.history.Close(); err != nil {
			n.logger.Warn().Err(err).Msg("History close failed")
		}
		n.history = nil
	}
	if n.board != nil {
		if err := n.board.Close(); err != nil {
			n.logger.Warn().Err(err).Msg("Hardware release failed")
		}
		n.board = nil
	}

	n.logger.Info().Msg("Node stopped")
}
