package cloud

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/airnode/internal/errors"
)

// Endpoints builds the device API URLs for one access token
type Endpoints struct {
	base  string
	host  string
	token string
}

func NewEndpoints(serverURL, token string) (Endpoints, error) {
	errFactory := errors.New()

	u, err := url.Parse(serverURL)
	if err != nil {
		return Endpoints{}, errFactory.Wrap(ErrInvalidServerURL, err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return Endpoints{}, errFactory.WithData(ErrInvalidServerURL, serverURL)
	}

	return Endpoints{
		base:  strings.TrimRight(serverURL, "/") + "/api/v1/" + url.PathEscape(token),
		host:  u.Hostname(),
		token: token,
	}, nil
}

// Host is the server host name, used for resolution checks
func (e Endpoints) Host() string {
	return e.host
}

// Token is the device access token
func (e Endpoints) Token() string {
	return e.token
}

func (e Endpoints) Telemetry() string {
	return e.base + "/telemetry"
}

// RPC is the long-poll URL; wait is the server-side hold budget
func (e Endpoints) RPC(wait time.Duration) string {
	return e.base + "/rpc?timeout=" + strconv.FormatInt(wait.Milliseconds(), 10)
}

// RPCReply is the acknowledgment URL for request id
func (e Endpoints) RPCReply(id int) string {
	return e.base + "/rpc/" + strconv.Itoa(id)
}
