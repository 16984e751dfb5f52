package mqtt

import (
	"context"
	"io"
	"sync"
)

// Topic suffixes relative to the device name.
const (
	TopicTransmit = "tx"
	TopicCapture  = "rx"
)

// ReadWriter implements PacketReadWriter.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh chan []byte
	doneCh   chan struct{}
	doneOnce sync.Once
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		packetCh: make(chan []byte, 16),
		doneCh:   make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForClient sets topics for the side driving the device:
// SubTopic = device/rx
// PubTopic = device/tx
func (p *ReadWriter) ForClient(device string) *ReadWriter {
	return p.WithTopics(device+"/"+TopicCapture, device+"/"+TopicTransmit)
}

// ForDevice sets topics for the side serving the device:
// SubTopic = device/tx
// PubTopic = device/rx
func (p *ReadWriter) ForDevice(device string) *ReadWriter {
	return p.WithTopics(device+"/"+TopicTransmit, device+"/"+TopicCapture)
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.doneCh:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Run implements Runnable. Packets are only received while running, and
// ReadPacket returns io.EOF once Run has stopped.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, Handler(p.handleMsg))
	defer p.stop()
	defer sub.Close()
	<-ctx.Done()
	return ctx.Err()
}

func (p *ReadWriter) stop() {
	p.doneOnce.Do(func() { close(p.doneCh) })
}

// handleMsg may still be called by an in-flight dispatch after Run returns.
func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.doneCh:
	}
}
