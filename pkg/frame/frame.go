// Package frame assembles and parses link frames.
//
// A frame is a 20-bit constant preamble, a 2-bit packet id and 40 or 64
// bits of payload taken from an 8-byte rolling-code packet. Bits are packed
// MSB-first within each byte and sequentially across bytes.
package frame

import (
	"fmt"
	"strings"
)

// Frame layout.
const (
	Preamble     uint32 = 0x0000F
	PreambleBits        = 20
	PacketIDBits        = 2
	HeaderBits          = PreambleBits + PacketIDBits

	// PacketSize is the size of a rolling-code packet in bytes.
	PacketSize = 8
	// PacketsPerTransmission is the number of frames sent back-to-back.
	PacketsPerTransmission = 2
)

// Type selects the payload length.
type Type int

// Frame types.
const (
	// Short carries 40 payload bits, no auxiliary data.
	Short Type = iota
	// Long carries 64 payload bits with auxiliary data.
	Long
)

// TypeFor picks the frame type for the auxiliary data.
func TypeFor(data uint32) Type {
	if data != 0 {
		return Long
	}
	return Short
}

// ParseType parses "short" or "long".
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "short", "40":
		return Short, nil
	case "long", "64":
		return Long, nil
	}
	return Short, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// String implements fmt.Stringer.
func (t Type) String() string {
	if t == Long {
		return "long"
	}
	return "short"
}

// Flag is the frame type flag passed to the rolling-code encoder.
func (t Type) Flag() uint8 {
	if t == Long {
		return 1
	}
	return 0
}

// PayloadBits is the number of payload bits.
func (t Type) PayloadBits() int {
	if t == Long {
		return 64
	}
	return 40
}

// Bits is the total frame length in bits.
func (t Type) Bits() int {
	return HeaderBits + t.PayloadBits()
}

// Bytes is the buffer size needed to pack a frame.
func (t Type) Bytes() int {
	return (t.Bits() + 7) / 8
}

// PacketID identifies the packet within a transmission.
type PacketID uint8

// IsValid checks the id is 0 or 1.
func (id PacketID) IsValid() bool {
	return id < PacketsPerTransmission
}

// Packet is the opaque output of the rolling-code encoder.
type Packet [PacketSize]byte

// Frame is an unpacked frame.
type Frame struct {
	Preamble uint32
	PacketID PacketID
	Type     Type
	// Payload holds the payload bits MSB-first, the remaining bits are zero.
	Payload Packet
}

// String implements fmt.Stringer.
func (f *Frame) String() string {
	return fmt.Sprintf("frame{id=%d type=%s payload=%x}", f.PacketID, f.Type, f.Payload[:(f.Type.PayloadBits()+7)/8])
}

// Header is the 22-bit preamble and packet id value.
func Header(id PacketID) uint32 {
	return Preamble<<PacketIDBits | uint32(id)&(1<<PacketIDBits-1)
}

// Pack writes the frame for packet into dst and returns the number of bits
// written. If dst is too small the bits that fit are written and
// ErrTruncated is returned. Bits beyond the frame are left untouched.
func Pack(dst []byte, packet *Packet, id PacketID, typ Type) (int, error) {
	if !id.IsValid() {
		return 0, ErrInvalidPacketID
	}
	header := Header(id)
	n := 0
	for i := HeaderBits - 1; i >= 0; i-- {
		if n/8 >= len(dst) {
			return n, ErrTruncated
		}
		setBit(dst, n, header>>uint(i)&1 != 0)
		n++
	}
	for i := 0; i < typ.PayloadBits(); i++ {
		if n/8 >= len(dst) {
			return n, ErrTruncated
		}
		setBit(dst, n, bitAt(packet[:], i))
		n++
	}
	return n, nil
}

// Unpack parses a packed frame of the given type.
func Unpack(src []byte, typ Type) (*Frame, error) {
	if len(src)*8 < typ.Bits() {
		return nil, ErrShortBuffer
	}
	var header uint32
	for i := 0; i < HeaderBits; i++ {
		header <<= 1
		if bitAt(src, i) {
			header |= 1
		}
	}
	f := &Frame{
		Preamble: header >> PacketIDBits,
		PacketID: PacketID(header & (1<<PacketIDBits - 1)),
		Type:     typ,
	}
	if f.Preamble != Preamble {
		return nil, ErrBadPreamble
	}
	if !f.PacketID.IsValid() {
		return nil, ErrInvalidPacketID
	}
	for i := 0; i < typ.PayloadBits(); i++ {
		setBit(f.Payload[:], i, bitAt(src, HeaderBits+i))
	}
	return f, nil
}

func bitAt(buf []byte, n int) bool {
	return buf[n/8]>>(7-uint(n%8))&1 != 0
}

func setBit(buf []byte, n int, v bool) {
	mask := byte(1) << (7 - uint(n%8))
	if v {
		buf[n/8] |= mask
	} else {
		buf[n/8] &^= mask
	}
}
