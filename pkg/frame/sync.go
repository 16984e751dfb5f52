package frame

const headerMask = 1<<HeaderBits - 1

type syncState int

const (
	stateHunt    syncState = iota // sliding the header window over incoming bits
	statePayload                  // preamble matched, collecting payload bits
)

// Syncer recovers frames from a continuous bit stream.
//
// It keeps a sliding window of the last 22 bits. When the top 20 bits equal
// the preamble and the low 2 bits are a valid packet id, the following
// payload bits of Type are collected into a Frame. Bits shifted out of a
// full window without a match are discarded and counted.
type Syncer struct {
	Type Type

	state     syncState
	window    uint32
	filled    int
	frame     *Frame
	recvBits  int
	discarded uint64
}

// NewSyncer creates a Syncer for frames of typ.
func NewSyncer(typ Type) *Syncer {
	return &Syncer{Type: typ}
}

// Synced indicates a preamble has been matched and payload is being collected.
func (s *Syncer) Synced() bool {
	return s.state == statePayload
}

// Discarded is the number of bits dropped while hunting for a preamble.
func (s *Syncer) Discarded() uint64 {
	return s.discarded
}

// Reset drops any partial window or frame, e.g. on an idle gap.
func (s *Syncer) Reset() {
	s.state, s.window, s.filled = stateHunt, 0, 0
	s.frame, s.recvBits = nil, 0
}

// Push consumes one bit and returns a Frame when one completes.
func (s *Syncer) Push(bit bool) *Frame {
	switch s.state {
	case stateHunt:
		if s.filled == HeaderBits {
			s.discarded++
		} else {
			s.filled++
		}
		s.window <<= 1
		if bit {
			s.window |= 1
		}
		s.window &= headerMask
		if s.filled < HeaderBits || s.window>>PacketIDBits != Preamble {
			return nil
		}
		id := PacketID(s.window & (1<<PacketIDBits - 1))
		if !id.IsValid() {
			return nil
		}
		s.frame = &Frame{Preamble: Preamble, PacketID: id, Type: s.Type}
		s.state, s.recvBits = statePayload, 0
	case statePayload:
		setBit(s.frame.Payload[:], s.recvBits, bit)
		s.recvBits++
		if s.recvBits >= s.Type.PayloadBits() {
			f := s.frame
			s.Reset()
			return f
		}
	}
	return nil
}
