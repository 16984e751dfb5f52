package link

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/secplus.go/pkg/frame"
	"github.com/robotalks/secplus.go/pkg/phy"
	"github.com/robotalks/secplus.go/pkg/rollingcode"
)

// IdleGapPulses is the number of idle Pulses between the two frames.
const IdleGapPulses = 25

// TrainLength is the number of Pulses in one transmission.
func TrainLength(typ frame.Type) int {
	return frame.PacketsPerTransmission*typ.Bits() + IdleGapPulses
}

// BuildTrain assembles the pulse train of a transmission: the frame of p0,
// the idle gap, then the frame of p1.
func BuildTrain(p0, p1 *frame.Packet, typ frame.Type) (phy.Train, error) {
	train := make(phy.Train, 0, TrainLength(typ))
	buf := make([]byte, typ.Bytes())
	for id, p := range []*frame.Packet{p0, p1} {
		n, err := frame.Pack(buf, p, frame.PacketID(id), typ)
		if err != nil {
			return nil, err
		}
		train = phy.EncodeBits(train, buf, n)
		if id == 0 {
			for i := 0; i < IdleGapPulses; i++ {
				train = append(train, phy.EncodeIdle())
			}
		}
	}
	return train, nil
}

// Transmitter sends rolling-code transmissions. Calls are serialized so
// trains never interleave on the peripheral.
type Transmitter struct {
	Encoder  rollingcode.Encoder
	Hardware PulseTransmitter
	// MaxPulses is the peripheral capacity, 0 for unlimited.
	MaxPulses int

	lock sync.Mutex
}

// NewTransmitter creates a Transmitter.
func NewTransmitter(enc rollingcode.Encoder, hw PulseTransmitter) *Transmitter {
	return &Transmitter{Encoder: enc, Hardware: hw}
}

// Transmit encodes the fields and sends both packets in one blocking write.
// The frame type is Long if data is non-zero.
func (t *Transmitter) Transmit(ctx context.Context, rolling uint32, fixed uint64, data uint32) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	typ := frame.TypeFor(data)
	p0, p1, err := t.Encoder.Encode(rolling, fixed, data, typ)
	if err != nil {
		return &EncodeError{Err: err}
	}
	if glog.V(2) {
		glog.Infof("TX %s packet0=%x packet1=%x", typ, p0[:], p1[:])
	}

	train, err := BuildTrain(&p0, &p1, typ)
	if err != nil {
		return err
	}
	if t.MaxPulses > 0 && len(train) > t.MaxPulses {
		return ErrTrainTooLong
	}
	if err = t.Hardware.Transmit(ctx, train); err != nil {
		return &HardwareError{Err: err}
	}
	glog.V(2).Infof("TX done: %d pulses, %v", len(train), train.Duration())
	return nil
}
