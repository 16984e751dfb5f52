package remote

import (
	"context"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/secplus.go/pkg/framework"
	"github.com/robotalks/secplus.go/pkg/link"
	"github.com/robotalks/secplus.go/pkg/phy"
)

// Server exposes a local peripheral to one remote Peripheral.
type Server struct {
	ReadWriter PacketReadWriter
	Hardware   link.Peripheral
	Clock      phy.Clock

	sendLock sync.Mutex
}

// NewServer creates a Server.
func NewServer(rw PacketReadWriter, hw link.Peripheral) *Server {
	return &Server{ReadWriter: rw, Hardware: hw, Clock: phy.DefaultClock}
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "remote-server"
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	runner := fx.NewRunnerWith(ctx)
	runner.Go(fx.RunFunc(s.forwardCaptures), fx.RunFunc(func(ctx context.Context) error {
		return runReadWriter(ctx, s.ReadWriter, s.handleMessage)
	}))
	return runner.Wait()
}

func (s *Server) send(msg *Message) error {
	pkt, err := msg.Encode()
	if err != nil {
		return err
	}
	s.sendLock.Lock()
	defer s.sendLock.Unlock()
	return s.ReadWriter.WritePacket(pkt)
}

func (s *Server) handleMessage(ctx context.Context, msg *Message) error {
	if msg.Kind != KindTransmit {
		glog.Warningf("remote: unexpected message %s", msg.Kind)
		return nil
	}
	train := make(phy.Train, len(msg.Items))
	for n, item := range msg.Items {
		train[n] = s.Clock.Pulse(item)
	}
	reply := &Message{Kind: KindTransmitDone, Seq: msg.Seq}
	if err := s.Hardware.Transmit(ctx, train); err != nil {
		glog.Errorf("remote: transmit %d error: %v", msg.Seq, err)
		reply.Error = err.Error()
	}
	return s.send(reply)
}

func (s *Server) forwardCaptures(ctx context.Context) error {
	for {
		b, err := s.Hardware.Receive(ctx)
		if err != nil {
			return err
		}
		err = s.send(&Message{Kind: KindCapture, Items: b.Items})
		s.Hardware.Release(b)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}
