package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"codeberg.org/mutker/airnode/internal/errors"
	"codeberg.org/mutker/airnode/internal/logger"
	"codeberg.org/mutker/airnode/internal/telemetry"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	TelemetryTopic = "v1/devices/me/telemetry"
	publishTimeout = 5 * time.Second
)

// MQTTSink publishes snapshots over the MQTT device API. The access token is
// the MQTT user name.
type MQTTSink struct {
	client    mqtt.Client
	logger    logger.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

type MQTTOptions struct {
	Broker   string
	Port     int
	ClientID string
	Token    string
}

func NewMQTTSink(opts MQTTOptions, log logger.Logger) *MQTTSink {
	s := &MQTTSink{
		logger: log,
		stopCh: make(chan struct{}),
	}

	co := mqtt.NewClientOptions()
	co.AddBroker(fmt.Sprintf("tcp://%s:%d", opts.Broker, opts.Port))
	co.SetClientID(opts.ClientID)
	co.SetUsername(opts.Token)

	co.SetCleanSession(true)
	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.SetConnectRetryInterval(5 * time.Second)
	co.SetMaxReconnectInterval(60 * time.Second)

	co.SetKeepAlive(30 * time.Second)
	co.SetPingTimeout(10 * time.Second)

	co.SetOnConnectHandler(func(_ mqtt.Client) {
		s.setConnected(true)
		log.Info().Str("broker", opts.Broker).Int("port", opts.Port).Msg("MQTT connected")
	})

	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		log.Warn().Err(err).Msg("MQTT connection lost")
	})

	s.client = mqtt.NewClient(co)

	return s
}

// Connect starts connecting and waits for the first connection, ctx or Close
func (s *MQTTSink) Connect(ctx context.Context) error {
	errFactory := errors.New()

	select {
	case <-s.stopCh:
		return errFactory.WithData(ErrMQTTConnect, "sink closed")
	default:
	}

	if s.IsConnected() {
		return nil
	}

	token := s.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return errFactory.Wrap(ErrMQTTConnect, err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return errFactory.Wrap(ErrMQTTConnect, ctx.Err())
		case <-s.stopCh:
			return errFactory.WithData(ErrMQTTConnect, "sink closed")
		default:
		}
	}
}

// Send publishes one snapshot with QoS 1. It does not retry.
func (s *MQTTSink) Send(_ context.Context, snapshot telemetry.Snapshot) error {
	errFactory := errors.New()

	if !s.IsConnected() {
		return errFactory.New(ErrNetworkDown)
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return errFactory.Wrap(ErrEncodeSnapshot, err)
	}

	token := s.client.Publish(TelemetryTopic, 1, false, body)
	if !token.WaitTimeout(publishTimeout) {
		return errFactory.WithData(ErrMQTTPublish, "publish timeout")
	}
	if err := token.Error(); err != nil {
		return errFactory.Wrap(ErrMQTTPublish, err)
	}

	return nil
}

func (s *MQTTSink) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

// Close stops connect loops and disconnects. Safe to call more than once.
func (s *MQTTSink) Close() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.client != nil {
		s.client.Disconnect(250)
	}

	s.setConnected(false)
	s.logger.Info().Msg("MQTT disconnected")
}

func (s *MQTTSink) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
