package fan

import "codeberg.org/mutker/airnode/internal/errors"

const (
	ErrApplyFailed = errors.ErrorCode("fan_apply_failed")
)
