// Package sim provides a software pulse peripheral.
package sim

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/secplus.go/pkg/phy"
)

// DefaultQueueDepth is the number of batches buffered by a Loopback.
const DefaultQueueDepth = 16

// Loopback is a peripheral whose capture channel receives everything
// transmitted, plus anything injected.
type Loopback struct {
	Clock phy.Clock
	// Realtime makes Transmit take as long as the train would on air.
	Realtime bool

	queue       chan *phy.Batch
	outstanding int32
	dropped     uint64
}

// NewLoopback creates a Loopback buffering up to depth batches.
func NewLoopback(depth int) *Loopback {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	return &Loopback{Clock: phy.DefaultClock, queue: make(chan *phy.Batch, depth)}
}

// Transmit implements link.PulseTransmitter.
func (l *Loopback) Transmit(ctx context.Context, train phy.Train) error {
	if l.Realtime {
		timer := time.NewTimer(train.Duration())
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	l.Inject(l.Clock.Items(train))
	return nil
}

// Inject queues captured items. It returns false if the queue is full and
// the items are dropped.
func (l *Loopback) Inject(items []phy.Item) bool {
	select {
	case l.queue <- &phy.Batch{Items: items}:
		return true
	default:
		atomic.AddUint64(&l.dropped, 1)
		glog.Warningf("loopback: queue full, %d items dropped", len(items))
		return false
	}
}

// Receive implements link.PulseCapture.
func (l *Loopback) Receive(ctx context.Context) (*phy.Batch, error) {
	select {
	case b := <-l.queue:
		atomic.AddInt32(&l.outstanding, 1)
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release implements link.PulseCapture.
func (l *Loopback) Release(b *phy.Batch) {
	if b != nil {
		atomic.AddInt32(&l.outstanding, -1)
	}
}

// Outstanding is the number of received batches not yet released.
func (l *Loopback) Outstanding() int {
	return int(atomic.LoadInt32(&l.outstanding))
}

// Dropped is the number of batches dropped on a full queue.
func (l *Loopback) Dropped() uint64 {
	return atomic.LoadUint64(&l.dropped)
}
