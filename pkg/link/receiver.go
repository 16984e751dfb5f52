package link

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/secplus.go/pkg/frame"
	"github.com/robotalks/secplus.go/pkg/phy"
	"github.com/robotalks/secplus.go/pkg/rollingcode"
)

// Stats are the counters of a Receiver.
type Stats struct {
	Batches      uint64
	Pulses       uint64
	IdleGaps     uint64
	Frames       uint64
	Discarded    uint64
	DecodeErrors uint64
}

// Receiver turns captured pulses into frames and decoded transmissions.
// A zero Clock is the default clock and a zero Type is Short.
type Receiver struct {
	Capture PulseCapture
	// Type is the frame type synchronized on. It's read when Run starts.
	Type frame.Type
	// Decoder is optional, frames are delivered undecoded without it.
	Decoder rollingcode.Decoder
	Handler ReceptionHandler
	Clock   phy.Clock

	syncer *frame.Syncer
	inIdle bool

	statsLock sync.Mutex
	stats     Stats
}

// NewReceiver creates a Receiver for frames of typ.
func NewReceiver(capture PulseCapture, typ frame.Type) *Receiver {
	return &Receiver{
		Capture: capture,
		Type:    typ,
		Clock:   phy.DefaultClock,
	}
}

// Name implements framework.Named.
func (r *Receiver) Name() string {
	return "receiver"
}


// Stats returns a snapshot of the counters.
func (r *Receiver) Stats() Stats {
	r.statsLock.Lock()
	defer r.statsLock.Unlock()
	return r.stats
}

// Run receives batches until ctx is done or the capture fails.
func (r *Receiver) Run(ctx context.Context) error {
	if r.syncer == nil || r.syncer.Type != r.Type {
		r.syncer = frame.NewSyncer(r.Type)
	}
	for {
		batch, err := r.Capture.Receive(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		r.process(ctx, batch.Items)
		r.Capture.Release(batch)
	}
}

func (r *Receiver) process(ctx context.Context, items []phy.Item) {
	var idleGaps, frames, decodeErrs uint64
	for _, item := range items {
		pulse := r.Clock.Pulse(item)
		if pulse.IsIdle() {
			if !r.inIdle {
				r.inIdle = true
				idleGaps++
				r.syncer.Reset()
			}
			continue
		}
		r.inIdle = false
		bit := phy.DecodeBit(pulse)
		if glog.V(4) {
			glog.Infof("RX %s -> %v", pulse, bit)
		}
		f := r.syncer.Push(bit)
		if f == nil {
			continue
		}
		frames++
		if !r.deliver(ctx, f) {
			decodeErrs++
		}
	}

	r.statsLock.Lock()
	r.stats.Batches++
	r.stats.Pulses += uint64(len(items))
	r.stats.IdleGaps += idleGaps
	r.stats.Frames += frames
	r.stats.DecodeErrors += decodeErrs
	r.stats.Discarded = r.syncer.Discarded()
	r.statsLock.Unlock()
}

func (r *Receiver) deliver(ctx context.Context, f *frame.Frame) bool {
	glog.V(2).Infof("RX %s", f)
	rec := &Reception{Frame: f}
	if r.Decoder != nil {
		rec.Fields, rec.Err = r.Decoder.Decode(f.PacketID, f.Payload, f.Type)
		if rec.Err != nil {
			glog.Warningf("RX decode packet %d error: %v", f.PacketID, rec.Err)
		} else if rec.Fields != nil {
			glog.V(2).Infof("RX %s", rec.Fields)
		}
	}
	if h := r.Handler; h != nil {
		h.HandleReception(ctx, rec)
	}
	return rec.Err == nil
}
