package rpc

import "codeberg.org/mutker/airnode/internal/errors"

const (
	ErrNetworkDown    = errors.ErrNetworkDown
	ErrResolveFailed  = errors.ErrResolveFailed
	ErrPollFailed     = errors.ErrorCode("rpc_poll_failed")
	ErrBadStatus      = errors.ErrBadStatus
	ErrDecodeRequest  = errors.ErrorCode("rpc_decode_request_failed")
	ErrEncodeResponse = errors.ErrorCode("rpc_encode_response_failed")
	ErrReplyFailed    = errors.ErrorCode("rpc_reply_failed")
)
