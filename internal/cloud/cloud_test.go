package cloud_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"testing"
	"time"

	"codeberg.org/mutker/airnode/internal/cloud"
	"codeberg.org/mutker/airnode/internal/errors"
	"codeberg.org/mutker/airnode/internal/logger"
	"codeberg.org/mutker/airnode/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLink bool

func (l staticLink) Associated() bool { return bool(l) }

type postCall struct {
	url     string
	headers map[string]string
	body    []byte
}

type fakeClient struct {
	status int
	err    error
	posts  []postCall
}

func (c *fakeClient) Get(context.Context, string, time.Duration) (int, []byte, error) {
	return c.status, nil, c.err
}

func (c *fakeClient) Post(_ context.Context, url string, headers map[string]string, body []byte) (int, []byte, error) {
	c.posts = append(c.posts, postCall{url: url, headers: headers, body: body})
	return c.status, nil, c.err
}

func TestEndpoints(t *testing.T) {
	e, err := cloud.NewEndpoints("http://demo.thingsboard.io/", "TOKEN")
	require.NoError(t, err)

	assert.Equal(t, "demo.thingsboard.io", e.Host())
	assert.Equal(t, "TOKEN", e.Token())
	assert.Equal(t, "http://demo.thingsboard.io/api/v1/TOKEN/telemetry", e.Telemetry())
	assert.Equal(t, "http://demo.thingsboard.io/api/v1/TOKEN/rpc?timeout=60000", e.RPC(60*time.Second))
	assert.Equal(t, "http://demo.thingsboard.io/api/v1/TOKEN/rpc/7", e.RPCReply(7))
}

func TestEndpointsRejectsBadURL(t *testing.T) {
	_, err := cloud.NewEndpoints("demo.thingsboard.io", "TOKEN")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, cloud.ErrInvalidServerURL))
}

func sampleSnapshot() telemetry.Snapshot {
	return telemetry.Snapshot{Temperature: 21, Humidity: 40, NH3: 6.5, CO2: 1500, TD: 1200, Light: 10, Distance: 12, FanSpeed: 128}
}

func TestHTTPSinkPostsSnapshot(t *testing.T) {
	e, _ := cloud.NewEndpoints("http://tb.local", "abc")
	client := &fakeClient{status: http.StatusOK}
	sink := cloud.NewHTTPSink(e, client, staticLink(true))

	require.NoError(t, sink.Send(context.Background(), sampleSnapshot()))
	require.Len(t, client.posts, 1)

	post := client.posts[0]
	assert.Equal(t, "http://tb.local/api/v1/abc/telemetry", post.url)
	assert.Equal(t, "application/json", post.headers["Content-Type"])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(post.body, &decoded))
	assert.EqualValues(t, 128, decoded["fan_speed"])
}

func TestJSONHeadersAreIndependent(t *testing.T) {
	h := cloud.JSONHeaders()
	h["Content-Type"] = "text/plain"
	h["X-Extra"] = "1"

	assert.Equal(t, map[string]string{"Content-Type": "application/json"}, cloud.JSONHeaders())

	e, _ := cloud.NewEndpoints("http://tb.local", "abc")
	client := &fakeClient{status: http.StatusOK}
	sink := cloud.NewHTTPSink(e, client, staticLink(true))

	require.NoError(t, sink.Send(context.Background(), sampleSnapshot()))
	client.posts[0].headers["X-Extra"] = "1"
	require.NoError(t, sink.Send(context.Background(), sampleSnapshot()))
	assert.NotContains(t, client.posts[1].headers, "X-Extra")
}

func TestHTTPSinkSkipsWhenLinkDown(t *testing.T) {
	e, _ := cloud.NewEndpoints("http://tb.local", "abc")
	client := &fakeClient{status: http.StatusOK}
	sink := cloud.NewHTTPSink(e, client, staticLink(false))

	err := sink.Send(context.Background(), sampleSnapshot())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, cloud.ErrNetworkDown))
	assert.Empty(t, client.posts)
}

func TestHTTPSinkReportsFailures(t *testing.T) {
	e, _ := cloud.NewEndpoints("http://tb.local", "abc")

	sink := cloud.NewHTTPSink(e, &fakeClient{status: http.StatusUnauthorized}, staticLink(true))
	err := sink.Send(context.Background(), sampleSnapshot())
	assert.True(t, errors.HasCode(err, cloud.ErrBadStatus))

	sink = cloud.NewHTTPSink(e, &fakeClient{err: stderrors.New("connection refused")}, staticLink(true))
	err = sink.Send(context.Background(), sampleSnapshot())
	assert.True(t, errors.HasCode(err, cloud.ErrSendTelemetry))
}

func TestMQTTSinkNotConnected(t *testing.T) {
	sink := cloud.NewMQTTSink(cloud.MQTTOptions{
		Broker:   "127.0.0.1",
		Port:     1,
		ClientID: "airnode-test",
		Token:    "abc",
	}, logger.Default())

	err := sink.Send(context.Background(), sampleSnapshot())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, cloud.ErrNetworkDown))

	sink.Close()
	sink.Close()

	err = sink.Connect(context.Background())
	assert.True(t, errors.HasCode(err, cloud.ErrMQTTConnect))
}
