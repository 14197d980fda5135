package hardware

import "codeberg.org/mutker/airnode/internal/errors"

const (
	ErrHostInit       = errors.ErrInitHardware
	ErrUnknownDriver  = errors.ErrorCode("hardware_unknown_driver")
	ErrPinNotFound    = errors.ErrorCode("hardware_pin_not_found")
	ErrPinSetup       = errors.ErrorCode("hardware_pin_setup_failed")
	ErrBusOpen        = errors.ErrorCode("hardware_i2c_open_failed")
	ErrDeviceInit     = errors.ErrorCode("hardware_device_init_failed")
	ErrUnknownChannel = errors.ErrorCode("hardware_unknown_channel")
	ErrShutdown       = errors.ErrShutdownFailed
)
