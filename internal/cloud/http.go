package cloud

import (
	"context"
	"encoding/json"

	"codeberg.org/mutker/airnode/internal/errors"
	"codeberg.org/mutker/airnode/internal/telemetry"
	"codeberg.org/mutker/airnode/internal/transport"
)

// HTTPSink posts snapshots to the telemetry endpoint
type HTTPSink struct {
	endpoints Endpoints
	client    transport.Client
	link      transport.Link
}

func NewHTTPSink(endpoints Endpoints, client transport.Client, link transport.Link) *HTTPSink {
	return &HTTPSink{
		endpoints: endpoints,
		client:    client,
		link:      link,
	}
}

// Send posts one snapshot. It does not retry.
func (s *HTTPSink) Send(ctx context.Context, snapshot telemetry.Snapshot) error {
	errFactory := errors.New()

	if !s.link.Associated() {
		return errFactory.New(ErrNetworkDown)
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return errFactory.Wrap(ErrEncodeSnapshot, err)
	}

	status, _, err := s.client.Post(ctx, s.endpoints.Telemetry(), JSONHeaders(), body)
	if err != nil {
		return errFactory.Wrap(ErrSendTelemetry, err)
	}
	if !isSuccess(status) {
		return errFactory.WithData(ErrBadStatus, status)
	}

	return nil
}

// JSONHeaders returns a new header map for JSON posts
func JSONHeaders() map[string]string {
	return map[string]string{"Content-Type": "application/json"}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
