package transport

import (
	"context"
	"time"

	"codeberg.org/mutker/airnode/internal/errors"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultPostTimeout = 10 * time.Second
	userAgent          = "airnode"
)

// RestyClient implements Client on top of resty
type RestyClient struct {
	client      *resty.Client
	postTimeout time.Duration
}

func NewRestyClient(postTimeout time.Duration) *RestyClient {
	if postTimeout <= 0 {
		postTimeout = DefaultPostTimeout
	}

	return &RestyClient{
		client:      resty.New().SetHeader("User-Agent", userAgent),
		postTimeout: postTimeout,
	}
}

// Get issues a GET bounded by timeout
func (c *RestyClient) Get(ctx context.Context, url string, timeout time.Duration) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return 0, nil, errors.New().Wrap(ErrRequestFailed, err)
	}

	return resp.StatusCode(), resp.Body(), nil
}

// Post issues a POST bounded by the client's post timeout
func (c *RestyClient) Post(ctx context.Context, url string, headers map[string]string, body []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.postTimeout)
	defer cancel()

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(body).
		Post(url)
	if err != nil {
		return 0, nil, errors.New().Wrap(ErrRequestFailed, err)
	}

	return resp.StatusCode(), resp.Body(), nil
}
