package dlcpro

import "errors"

var (
	// ErrInvalidChannel is returned for a channel outside the device topology.
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrConnection is returned when the device connection cannot be
	// established or has been lost.
	ErrConnection = errors.New("connection error")
	// ErrDeviceIO is returned when a parameter read or write fails.
	ErrDeviceIO = errors.New("device I/O error")
)
