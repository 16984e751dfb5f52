package rollingcode

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/robotalks/secplus.go/pkg/frame"
)

// MaxFixed is the largest fixed id, 40 bits.
const MaxFixed uint64 = 1<<40 - 1

var (
	// ErrFixedRange indicates the fixed id exceeds 40 bits.
	ErrFixedRange = errors.New("fixed id out of range")
	// ErrUnpaired indicates packet 1 arrived without a matching packet 0.
	ErrUnpaired = errors.New("packet without its pair")
)

// Plain is a loopback codec that lays the fields out in the clear. It
// gives no security and exists to drive the link without the real
// rolling-code cipher.
//
// Packet 0: rolling(32) fixed[39:32](8) [data[31:16](16)]
// Packet 1: fixed[31:0](32) 0(8)        [data[15:0](16)]
type Plain struct {
	lock    sync.Mutex
	pending *frame.Packet
}

// NewPlain creates a Plain codec.
func NewPlain() *Plain {
	return &Plain{}
}

// Encode implements Encoder.
func (c *Plain) Encode(rolling uint32, fixed uint64, data uint32, typ frame.Type) (p0, p1 frame.Packet, err error) {
	if fixed > MaxFixed {
		err = ErrFixedRange
		return
	}
	binary.BigEndian.PutUint32(p0[0:4], rolling)
	p0[4] = byte(fixed >> 32)
	binary.BigEndian.PutUint32(p1[0:4], uint32(fixed))
	if typ == frame.Long {
		binary.BigEndian.PutUint16(p0[5:7], uint16(data>>16))
		binary.BigEndian.PutUint16(p1[5:7], uint16(data))
	}
	return
}

// Decode implements Decoder.
func (c *Plain) Decode(id frame.PacketID, payload frame.Packet, typ frame.Type) (*Fields, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if id == 0 {
		c.pending = &payload
		return nil, nil
	}
	p0 := c.pending
	c.pending = nil
	if p0 == nil {
		return nil, ErrUnpaired
	}
	f := &Fields{
		Rolling: binary.BigEndian.Uint32(p0[0:4]),
		Fixed:   uint64(p0[4])<<32 | uint64(binary.BigEndian.Uint32(payload[0:4])),
	}
	if typ == frame.Long {
		f.Data = uint32(binary.BigEndian.Uint16(p0[5:7]))<<16 | uint32(binary.BigEndian.Uint16(payload[5:7]))
	}
	return f, nil
}
