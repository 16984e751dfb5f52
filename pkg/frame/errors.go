package frame

import "errors"

var (
	// ErrTruncated indicates the destination buffer is too small to hold
	// the whole frame. The bits that fit have been written.
	ErrTruncated = errors.New("frame truncated")
	// ErrShortBuffer indicates the source buffer holds fewer bits than the frame type needs.
	ErrShortBuffer = errors.New("short frame buffer")
	// ErrBadPreamble indicates the frame does not start with the preamble.
	ErrBadPreamble = errors.New("bad preamble")
	// ErrInvalidPacketID indicates a packet id other than 0 or 1.
	ErrInvalidPacketID = errors.New("invalid packet id")
	// ErrUnknownType indicates an unknown frame type name.
	ErrUnknownType = errors.New("unknown frame type")
)
