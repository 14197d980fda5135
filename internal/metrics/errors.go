package metrics

import "codeberg.org/mutker/airnode/internal/errors"

const (
	ErrRegisterFailed  = errors.ErrorCode("metrics_register_failed")
	ErrServeFailed     = errors.ErrorCode("metrics_serve_failed")
	ErrServiceShutdown = errors.ErrShutdownFailed
)
