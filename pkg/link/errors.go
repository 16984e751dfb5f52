package link

import (
	"errors"
	"fmt"
)

// ErrTrainTooLong indicates the pulse train does not fit the peripheral.
// Nothing has been sent.
var ErrTrainTooLong = errors.New("pulse train exceeds peripheral capacity")

// EncodeError wraps a failure of the rolling-code encoder.
type EncodeError struct {
	Err error
}

// Error implements error.
func (e *EncodeError) Error() string {
	return fmt.Sprintf("rolling-code encode: %v", e.Err)
}

// Unwrap returns the encoder error.
func (e *EncodeError) Unwrap() error {
	return e.Err
}

// HardwareError wraps a failure of the peripheral while transmitting.
type HardwareError struct {
	Err error
}

// Error implements error.
func (e *HardwareError) Error() string {
	return fmt.Sprintf("hardware transmit: %v", e.Err)
}

// Unwrap returns the peripheral error.
func (e *HardwareError) Unwrap() error {
	return e.Err
}
