package remote

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/secplus.go/pkg/framework"
	"github.com/robotalks/secplus.go/pkg/phy"
)

// DefaultAckMargin is the time allowed on top of the train duration for a
// transmit to be acknowledged.
const DefaultAckMargin = 200 * time.Millisecond

// DefaultCaptureDepth is the number of captured batches buffered.
const DefaultCaptureDepth = 16

var (
	// ErrAckTimeout indicates the remote didn't acknowledge a transmit in time.
	ErrAckTimeout = errors.New("transmit not acknowledged")
	// ErrClosed indicates the peripheral is no longer running.
	ErrClosed = errors.New("peripheral closed")
)

// RemoteError is a transmit failure reported by the remote.
type RemoteError struct {
	Message string
}

// Error implements error.
func (e *RemoteError) Error() string {
	return "remote: " + e.Message
}

// Peripheral is a link.Peripheral reached over a PacketReadWriter.
// Run must be running for Transmit and Receive to make progress.
type Peripheral struct {
	ReadWriter PacketReadWriter
	Clock      phy.Clock
	AckMargin  time.Duration

	seq      uint32
	sendLock sync.Mutex

	pendingLock sync.Mutex
	pending     map[uint32]chan error

	captures chan *phy.Batch
	doneCh   chan struct{}
	doneOnce sync.Once
}

// NewPeripheral creates a Peripheral.
func NewPeripheral(rw PacketReadWriter) *Peripheral {
	return &Peripheral{
		ReadWriter: rw,
		Clock:      phy.DefaultClock,
		AckMargin:  DefaultAckMargin,
		pending:    make(map[uint32]chan error),
		captures:   make(chan *phy.Batch, DefaultCaptureDepth),
		doneCh:     make(chan struct{}),
	}
}

// Name implements framework.Named.
func (p *Peripheral) Name() string {
	return "remote-peripheral"
}

// Transmit implements link.PulseTransmitter. It returns after the remote
// acknowledges the transmit, or fails after the train duration plus
// AckMargin.
func (p *Peripheral) Transmit(ctx context.Context, train phy.Train) error {
	seq := atomic.AddUint32(&p.seq, 1)
	ackCh := make(chan error, 1)
	p.pendingLock.Lock()
	p.pending[seq] = ackCh
	p.pendingLock.Unlock()
	defer func() {
		p.pendingLock.Lock()
		delete(p.pending, seq)
		p.pendingLock.Unlock()
	}()

	msg := &Message{Kind: KindTransmit, Seq: seq, Items: p.Clock.Items(train)}
	if err := p.send(msg); err != nil {
		return err
	}
	timer := time.NewTimer(train.Duration() + p.AckMargin)
	defer timer.Stop()
	select {
	case err := <-ackCh:
		return err
	case <-timer.C:
		return ErrAckTimeout
	case <-p.doneCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive implements link.PulseCapture.
func (p *Peripheral) Receive(ctx context.Context) (*phy.Batch, error) {
	select {
	case b := <-p.captures:
		return b, nil
	case <-p.doneCh:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release implements link.PulseCapture.
func (p *Peripheral) Release(*phy.Batch) {}

// Run implements Runnable.
func (p *Peripheral) Run(ctx context.Context) error {
	defer p.doneOnce.Do(func() { close(p.doneCh) })
	return runReadWriter(ctx, p.ReadWriter, p.handlePacket)
}

func (p *Peripheral) send(msg *Message) error {
	pkt, err := msg.Encode()
	if err != nil {
		return err
	}
	p.sendLock.Lock()
	defer p.sendLock.Unlock()
	return p.ReadWriter.WritePacket(pkt)
}

func (p *Peripheral) handlePacket(ctx context.Context, msg *Message) error {
	switch msg.Kind {
	case KindTransmitDone:
		p.pendingLock.Lock()
		ackCh := p.pending[msg.Seq]
		delete(p.pending, msg.Seq)
		p.pendingLock.Unlock()
		if ackCh == nil {
			glog.Warningf("remote: unexpected ack %d", msg.Seq)
			return nil
		}
		var err error
		if msg.Error != "" {
			err = &RemoteError{Message: msg.Error}
		}
		select {
		case ackCh <- err:
		default:
			glog.Warningf("remote: duplicate ack %d", msg.Seq)
		}
	case KindCapture:
		select {
		case p.captures <- &phy.Batch{Items: msg.Items}:
		default:
			glog.Warningf("remote: capture queue full, %d items dropped", len(msg.Items))
		}
	default:
		glog.Warningf("remote: unexpected message %s", msg.Kind)
	}
	return nil
}

type messageHandler func(context.Context, *Message) error

// runReadWriter reads and dispatches messages until ctx is done. If rw is
// Runnable it runs alongside, and if rw is an io.Closer it's closed on exit.
func runReadWriter(ctx context.Context, rw PacketReadWriter, handler messageHandler) error {
	runner := fx.NewRunnerWith(ctx)
	if runnable, ok := rw.(fx.Runnable); ok {
		runner.Go(runnable)
	}
	readLoop := func(ctx context.Context) error {
		for {
			pkt, err := rw.ReadPacket()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
			msg, err := DecodeMessage(pkt)
			if err != nil {
				return err
			}
			glog.V(4).Infof("remote: RCV %s seq=%d items=%d", msg.Kind, msg.Seq, len(msg.Items))
			if err = handler(ctx, msg); err != nil {
				return err
			}
		}
	}
	if closer, ok := rw.(io.Closer); ok {
		runner.Go(fx.RunFunc(func(ctx context.Context) error {
			return fx.RunWithContextCloser(ctx, closer, func() error { return readLoop(ctx) })
		}))
	} else {
		runner.Go(fx.RunFunc(readLoop))
	}
	return runner.Wait()
}
