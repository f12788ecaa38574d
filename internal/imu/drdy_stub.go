//go:build !linux || (!arm && !arm64)

package imu

import "fmt"

// Stub implementation for non-Linux and/or non-ARM platforms.
func openDataReady(pin int) (dataReady, error) {
	return nil, fmt.Errorf("imu: gpio unsupported on this platform")
}

var openDataReadyFn = openDataReady
