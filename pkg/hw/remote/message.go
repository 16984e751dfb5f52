package remote

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/secplus.go/pkg/phy"
)

// Kind is the type of a Message.
type Kind uint8

// Message kinds.
const (
	// KindTransmit asks the peripheral to transmit Items.
	KindTransmit Kind = iota + 1
	// KindTransmitDone acknowledges the KindTransmit of the same Seq.
	KindTransmitDone
	// KindCapture carries captured Items.
	KindCapture
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindTransmit:
		return "transmit"
	case KindTransmitDone:
		return "transmit-done"
	case KindCapture:
		return "capture"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ErrMalformed indicates a packet can't be decoded as a Message.
var ErrMalformed = errors.New("malformed message")

// Message is exchanged between a Peripheral and a Server. It's encoded in
// protobuf wire format:
//
//   1: kind   varint
//   2: seq    varint
//   3: items  packed fixed32
//   4: error  string
type Message struct {
	Kind  Kind
	Seq   uint32
	Items []phy.Item
	Error string
}

const (
	fieldKind  = 1
	fieldSeq   = 2
	fieldItems = 3
	fieldError = 4

	wireVarint  = 0
	wireFixed64 = 1
	wireBytes   = 2
	wireFixed32 = 5
)

func tag(field, wire int) uint64 {
	return uint64(field<<3 | wire)
}

// Encode encodes the message into a packet.
func (m *Message) Encode() ([]byte, error) {
	b := proto.NewBuffer(make([]byte, 0, 16+len(m.Items)*4+len(m.Error)))
	b.EncodeVarint(tag(fieldKind, wireVarint))
	b.EncodeVarint(uint64(m.Kind))
	if m.Seq != 0 {
		b.EncodeVarint(tag(fieldSeq, wireVarint))
		b.EncodeVarint(uint64(m.Seq))
	}
	if len(m.Items) > 0 {
		items := proto.NewBuffer(make([]byte, 0, len(m.Items)*4))
		for _, item := range m.Items {
			items.EncodeFixed32(uint64(item))
		}
		b.EncodeVarint(tag(fieldItems, wireBytes))
		if err := b.EncodeRawBytes(items.Bytes()); err != nil {
			return nil, err
		}
	}
	if m.Error != "" {
		b.EncodeVarint(tag(fieldError, wireBytes))
		if err := b.EncodeStringBytes(m.Error); err != nil {
			return nil, err
		}
	}
	return b.Bytes(), nil
}

// DecodeMessage decodes a packet. Unknown fields are skipped.
func DecodeMessage(pkt []byte) (*Message, error) {
	m := &Message{}
	for len(pkt) > 0 {
		key, n := proto.DecodeVarint(pkt)
		if n == 0 {
			return nil, ErrMalformed
		}
		pkt = pkt[n:]
		field, wire := int(key>>3), int(key&7)
		switch wire {
		case wireVarint:
			val, n := proto.DecodeVarint(pkt)
			if n == 0 {
				return nil, ErrMalformed
			}
			pkt = pkt[n:]
			switch field {
			case fieldKind:
				if val == 0 || val > 0xff {
					return nil, fmt.Errorf("%w: kind %d", ErrMalformed, val)
				}
				m.Kind = Kind(val)
			case fieldSeq:
				m.Seq = uint32(val)
			}
		case wireBytes:
			size, n := proto.DecodeVarint(pkt)
			if n == 0 || uint64(len(pkt)-n) < size {
				return nil, ErrMalformed
			}
			data := pkt[n : n+int(size)]
			pkt = pkt[n+int(size):]
			switch field {
			case fieldItems:
				items, err := decodeItems(data)
				if err != nil {
					return nil, err
				}
				m.Items = items
			case fieldError:
				m.Error = string(data)
			}
		case wireFixed32:
			if len(pkt) < 4 {
				return nil, ErrMalformed
			}
			pkt = pkt[4:]
		case wireFixed64:
			if len(pkt) < 8 {
				return nil, ErrMalformed
			}
			pkt = pkt[8:]
		default:
			return nil, fmt.Errorf("%w: wire type %d", ErrMalformed, wire)
		}
	}
	if m.Kind == 0 {
		return nil, fmt.Errorf("%w: missing kind", ErrMalformed)
	}
	return m, nil
}

func decodeItems(data []byte) ([]phy.Item, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: items length %d", ErrMalformed, len(data))
	}
	items := make([]phy.Item, len(data)/4)
	b := proto.NewBuffer(data)
	for n := range items {
		val, err := b.DecodeFixed32()
		if err != nil {
			return nil, err
		}
		items[n] = phy.Item(val)
	}
	return items, nil
}
