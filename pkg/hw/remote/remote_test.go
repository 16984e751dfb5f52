package remote

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/secplus.go/pkg/framework"
	"github.com/robotalks/secplus.go/pkg/frame"
	"github.com/robotalks/secplus.go/pkg/hw/remote/stream"
	"github.com/robotalks/secplus.go/pkg/hw/sim"
	"github.com/robotalks/secplus.go/pkg/link"
	"github.com/robotalks/secplus.go/pkg/phy"
	"github.com/robotalks/secplus.go/pkg/rollingcode"
)

var _ link.Peripheral = &Peripheral{}

func TestMessageCodec(t *testing.T) {
	msg := &Message{
		Kind:  KindTransmit,
		Seq:   300,
		Items: []phy.Item{0x807d007d, 1, 0xffffffff},
		Error: "busy",
	}
	pkt, err := msg.Encode()
	require.NoError(t, err)
	require.Equal(t, []byte{0x08, 0x01, 0x10, 0xac, 0x02, 0x1a, 0x0c}, pkt[:7])
	decoded, err := DecodeMessage(pkt)
	require.NoError(t, err)
	require.Equal(t, msg, decoded)

	pkt, err = (&Message{Kind: KindCapture}).Encode()
	require.NoError(t, err)
	require.Equal(t, []byte{0x08, 0x03}, pkt)

	// unknown fixed32 field 7 is skipped
	decoded, err = DecodeMessage([]byte{0x08, 0x02, 0x3d, 1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, &Message{Kind: KindTransmitDone}, decoded)
}

func TestMessageMalformed(t *testing.T) {
	for _, pkt := range [][]byte{
		nil,
		{0x08},
		{0x10, 0x01},
		{0x08, 0x01, 0x1a, 0x03, 1, 2, 3},
		{0x08, 0x01, 0x1a, 0x08, 1},
		{0x08, 0x01, 0x3b},
		{0x08, 0x81, 0x02},
		{0x08, 0x00},
	} {
		_, err := DecodeMessage(pkt)
		require.True(t, errors.Is(err, ErrMalformed), "%x: %v", pkt, err)
	}
}

func runPeer(ctx context.Context, r fx.Runnable) chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()
	return errCh
}

func TestRemoteLink(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	hw := sim.NewLoopback(0)
	server := NewServer(stream.New(serverConn), hw)
	client := NewPeripheral(stream.New(clientConn))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serverErr := runPeer(ctx, server)
	clientErr := runPeer(ctx, client)

	rx := link.NewReceiver(client, frame.Short)
	rx.Decoder = rollingcode.NewPlain()
	fieldsCh := make(chan rollingcode.Fields, 1)
	rx.Handler = link.HandleReceptionFunc(func(ctx context.Context, rec *link.Reception) {
		if rec.Fields != nil {
			fieldsCh <- *rec.Fields
		}
	})
	rxErr := runPeer(ctx, rx)

	tx := link.NewTransmitter(rollingcode.NewPlain(), client)
	require.NoError(t, tx.Transmit(ctx, 77, 0x0102030405, 0))
	select {
	case f := <-fieldsCh:
		require.Equal(t, rollingcode.Fields{Rolling: 77, Fixed: 0x0102030405}, f)
	case <-time.After(2 * time.Second):
		t.Fatal("no reception")
	}

	cancel()
	require.Equal(t, context.Canceled, <-rxErr)
	require.NoError(t, <-clientErr)
	<-serverErr
}

type failingHardware struct {
	*sim.Loopback
}

func (h failingHardware) Transmit(context.Context, phy.Train) error {
	return errors.New("antenna disconnected")
}

func TestRemoteTransmitError(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	server := NewServer(stream.New(serverConn), failingHardware{sim.NewLoopback(0)})
	client := NewPeripheral(stream.New(clientConn))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runPeer(ctx, server)
	runPeer(ctx, client)

	err := client.Transmit(ctx, phy.Train{phy.EncodeBit(true)})
	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	require.Equal(t, "antenna disconnected", remoteErr.Message)
}

type sinkReadWriter struct {
	packets chan []byte
}

func (s *sinkReadWriter) ReadPacket() ([]byte, error) {
	select {}
}

func (s *sinkReadWriter) WritePacket(pkt []byte) error {
	s.packets <- pkt
	return nil
}

func TestRemoteAckTimeout(t *testing.T) {
	rw := &sinkReadWriter{packets: make(chan []byte, 1)}
	client := NewPeripheral(rw)
	client.AckMargin = time.Millisecond
	train := phy.Train{phy.EncodeIdle(), phy.EncodeIdle()}
	start := time.Now()
	require.Equal(t, ErrAckTimeout, client.Transmit(context.Background(), train))
	require.True(t, time.Since(start) >= train.Duration())

	msg, err := DecodeMessage(<-rw.packets)
	require.NoError(t, err)
	require.Equal(t, KindTransmit, msg.Kind)
	require.Equal(t, uint32(1), msg.Seq)
	require.Equal(t, phy.DefaultClock.Items(train), msg.Items)
}

func TestPeripheralHandlesUnexpected(t *testing.T) {
	client := NewPeripheral(&sinkReadWriter{packets: make(chan []byte, 1)})
	ctx := context.Background()
	require.NoError(t, client.handlePacket(ctx, &Message{Kind: KindTransmitDone, Seq: 9}))
	require.NoError(t, client.handlePacket(ctx, &Message{Kind: KindTransmit}))
	require.NoError(t, client.handlePacket(ctx, &Message{Kind: KindCapture, Items: []phy.Item{5}}))
	b, err := client.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, []phy.Item{5}, b.Items)
}

func TestPeripheralDuplicateAck(t *testing.T) {
	client := NewPeripheral(&sinkReadWriter{packets: make(chan []byte, 1)})
	ackCh := make(chan error, 1)
	client.pending[5] = ackCh
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx := context.Background()
		client.handlePacket(ctx, &Message{Kind: KindTransmitDone, Seq: 5})
		client.handlePacket(ctx, &Message{Kind: KindTransmitDone, Seq: 5, Error: "late"})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("duplicate ack blocked the read loop")
	}
	require.NoError(t, <-ackCh)
	require.Empty(t, client.pending)
}
