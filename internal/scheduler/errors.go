package scheduler

import "codeberg.org/mutker/airnode/internal/errors"

const (
	ErrReportFailed  = errors.ErrorCode("scheduler_report_failed")
	ErrHistoryFailed = errors.ErrorCode("scheduler_history_failed")
)
