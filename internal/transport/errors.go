package transport

import "codeberg.org/mutker/airnode/internal/errors"

const (
	ErrRequestFailed = errors.ErrRequestFailed
	ErrResolveFailed = errors.ErrResolveFailed
	ErrNoAddresses   = errors.ErrorCode("transport_no_addresses")
	ErrLinkDown      = errors.ErrNetworkDown
)
