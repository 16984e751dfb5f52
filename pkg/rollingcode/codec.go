// Package rollingcode defines the rolling-code encoder and decoder used by
// the link, and a plain loopback codec for bench testing.
package rollingcode

import (
	"fmt"

	"github.com/robotalks/secplus.go/pkg/frame"
)

// Fields are the values carried by one transmission.
type Fields struct {
	Rolling uint32
	Fixed   uint64
	Data    uint32
}

// String implements fmt.Stringer.
func (f Fields) String() string {
	return fmt.Sprintf("rolling=%d fixed=%#x data=%#x", f.Rolling, f.Fixed, f.Data)
}

// Encoder converts fields into the two packets of a transmission.
type Encoder interface {
	Encode(rolling uint32, fixed uint64, data uint32, typ frame.Type) (p0, p1 frame.Packet, err error)
}

// Decoder consumes received packets. It returns nil Fields until all the
// packets of a transmission have been seen.
type Decoder interface {
	Decode(id frame.PacketID, payload frame.Packet, typ frame.Type) (*Fields, error)
}

// Codec is both Encoder and Decoder.
type Codec interface {
	Encoder
	Decoder
}

// EncodeFunc is func form of Encoder.
type EncodeFunc func(rolling uint32, fixed uint64, data uint32, typ frame.Type) (frame.Packet, frame.Packet, error)

// Encode implements Encoder.
func (f EncodeFunc) Encode(rolling uint32, fixed uint64, data uint32, typ frame.Type) (frame.Packet, frame.Packet, error) {
	return f(rolling, fixed, data, typ)
}

// DecodeFunc is func form of Decoder.
type DecodeFunc func(id frame.PacketID, payload frame.Packet, typ frame.Type) (*Fields, error)

// Decode implements Decoder.
func (f DecodeFunc) Decode(id frame.PacketID, payload frame.Packet, typ frame.Type) (*Fields, error) {
	return f(id, payload, typ)
}
