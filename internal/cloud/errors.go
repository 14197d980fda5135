package cloud

import "codeberg.org/mutker/airnode/internal/errors"

const (
	ErrInvalidServerURL = errors.ErrorCode("cloud_invalid_server_url")
	ErrEncodeSnapshot   = errors.ErrorCode("cloud_encode_snapshot_failed")
	ErrSendTelemetry    = errors.ErrorCode("cloud_send_telemetry_failed")
	ErrBadStatus        = errors.ErrBadStatus
	ErrNetworkDown      = errors.ErrNetworkDown
	ErrMQTTConnect      = errors.ErrorCode("cloud_mqtt_connect_failed")
	ErrMQTTPublish      = errors.ErrorCode("cloud_mqtt_publish_failed")
)
