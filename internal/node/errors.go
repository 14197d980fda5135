package node

import "codeberg.org/mutker/airnode/internal/errors"

const (
	ErrInitNode    = errors.ErrInitApp
	ErrUnknownSink = errors.ErrorCode("node_unknown_transport")
)
