package link

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/secplus.go/pkg/frame"
	"github.com/robotalks/secplus.go/pkg/phy"
	"github.com/robotalks/secplus.go/pkg/rollingcode"
)

type recordingTransmitter struct {
	trains []phy.Train
	err    error
}

func (r *recordingTransmitter) Transmit(ctx context.Context, train phy.Train) error {
	if r.err != nil {
		return r.err
	}
	r.trains = append(r.trains, train)
	return nil
}

type chanCapture struct {
	batches  chan *phy.Batch
	released int32
}

func newChanCapture() *chanCapture {
	return &chanCapture{batches: make(chan *phy.Batch, 4)}
}

func (c *chanCapture) Receive(ctx context.Context) (*phy.Batch, error) {
	select {
	case b := <-c.batches:
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *chanCapture) Release(*phy.Batch) {
	atomic.AddInt32(&c.released, 1)
}

func trainBits(train phy.Train) (bits []bool, idles []int) {
	for n, p := range train {
		if p.IsIdle() {
			idles = append(idles, n)
			continue
		}
		bits = append(bits, phy.DecodeBit(p))
	}
	return
}

func packedBits(t *testing.T, p *frame.Packet, id frame.PacketID, typ frame.Type) []bool {
	buf := make([]byte, typ.Bytes())
	n, err := frame.Pack(buf, p, id, typ)
	require.NoError(t, err)
	bits := make([]bool, n)
	for i := range bits {
		bits[i] = buf[i/8]>>(7-uint(i%8))&1 != 0
	}
	return bits
}

func TestTransmitTrainLayout(t *testing.T) {
	testCases := []struct {
		name   string
		data   uint32
		typ    frame.Type
		pulses int
	}{
		{"short", 0, frame.Short, 149},
		{"long", 0x1234, frame.Long, 197},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			hw := &recordingTransmitter{}
			codec := rollingcode.NewPlain()
			tx := NewTransmitter(codec, hw)
			require.NoError(t, tx.Transmit(context.Background(), 1, 0xAABBCCDDEE, tc.data))
			require.Len(t, hw.trains, 1)
			train := hw.trains[0]
			require.Len(t, train, tc.pulses)
			require.Equal(t, tc.pulses, TrainLength(tc.typ))

			bits, idles := trainBits(train)
			require.Len(t, idles, IdleGapPulses)
			frameBits := tc.typ.Bits()
			for i, n := range idles {
				require.Equal(t, frameBits+i, n)
			}

			p0, p1, err := codec.Encode(1, 0xAABBCCDDEE, tc.data, tc.typ)
			require.NoError(t, err)
			expected := append(packedBits(t, &p0, 0, tc.typ), packedBits(t, &p1, 1, tc.typ)...)
			require.Equal(t, expected, bits)
		})
	}
}

func TestTransmitErrors(t *testing.T) {
	t.Run("encode", func(t *testing.T) {
		encErr := errors.New("no key")
		hw := &recordingTransmitter{}
		tx := NewTransmitter(rollingcode.EncodeFunc(func(uint32, uint64, uint32, frame.Type) (frame.Packet, frame.Packet, error) {
			return frame.Packet{}, frame.Packet{}, encErr
		}), hw)
		err := tx.Transmit(context.Background(), 1, 2, 0)
		var e *EncodeError
		require.True(t, errors.As(err, &e))
		require.True(t, errors.Is(err, encErr))
		require.Empty(t, hw.trains)
	})
	t.Run("hardware", func(t *testing.T) {
		hwErr := errors.New("channel busy")
		tx := NewTransmitter(rollingcode.NewPlain(), &recordingTransmitter{err: hwErr})
		err := tx.Transmit(context.Background(), 1, 2, 0)
		var e *HardwareError
		require.True(t, errors.As(err, &e))
		require.True(t, errors.Is(err, hwErr))
	})
	t.Run("too long", func(t *testing.T) {
		hw := &recordingTransmitter{}
		tx := NewTransmitter(rollingcode.NewPlain(), hw)
		tx.MaxPulses = 150
		require.NoError(t, tx.Transmit(context.Background(), 1, 2, 0))
		require.Equal(t, ErrTrainTooLong, tx.Transmit(context.Background(), 1, 2, 3))
		require.Len(t, hw.trains, 1)
	})
	t.Run("fixed range", func(t *testing.T) {
		tx := NewTransmitter(rollingcode.NewPlain(), &recordingTransmitter{})
		err := tx.Transmit(context.Background(), 1, rollingcode.MaxFixed+1, 0)
		require.True(t, errors.Is(err, rollingcode.ErrFixedRange))
	})
}

func TestReceiverLoopback(t *testing.T) {
	testCases := []struct {
		name string
		data uint32
		typ  frame.Type
	}{
		{"short", 0, frame.Short},
		{"long", 0xbeef, frame.Long},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			codec := rollingcode.NewPlain()
			p0, p1, err := codec.Encode(42, 0xab12345678, tc.data, tc.typ)
			require.NoError(t, err)
			train, err := BuildTrain(&p0, &p1, tc.typ)
			require.NoError(t, err)

			noise := phy.Train{phy.EncodeBit(true), phy.EncodeBit(true), phy.EncodeBit(true)}
			capture := newChanCapture()
			capture.batches <- &phy.Batch{Items: phy.DefaultClock.Items(append(noise, train...))}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			var recs []*Reception
			rx := NewReceiver(capture, tc.typ)
			rx.Decoder = rollingcode.NewPlain()
			rx.Handler = HandleReceptionFunc(func(ctx context.Context, rec *Reception) {
				recs = append(recs, rec)
				if rec.Fields != nil {
					cancel()
				}
			})
			require.Equal(t, context.Canceled, rx.Run(ctx))

			require.Len(t, recs, 2)
			require.Equal(t, frame.PacketID(0), recs[0].Frame.PacketID)
			require.Nil(t, recs[0].Fields)
			require.Equal(t, p0, recs[0].Frame.Payload)
			require.Equal(t, frame.PacketID(1), recs[1].Frame.PacketID)
			require.NoError(t, recs[1].Err)
			require.Equal(t, rollingcode.Fields{Rolling: 42, Fixed: 0xab12345678, Data: tc.data}, *recs[1].Fields)

			stats := rx.Stats()
			require.Equal(t, uint64(1), stats.Batches)
			require.Equal(t, uint64(len(train)+len(noise)), stats.Pulses)
			require.Equal(t, uint64(2), stats.Frames)
			require.Equal(t, uint64(1), stats.IdleGaps)
			require.Equal(t, uint64(3), stats.Discarded)
			require.Zero(t, stats.DecodeErrors)
			require.Equal(t, int32(1), atomic.LoadInt32(&capture.released))
		})
	}
}

func TestReceiverIdleResetsPartialFrame(t *testing.T) {
	codec := rollingcode.NewPlain()
	p0, p1, err := codec.Encode(7, 9, 0, frame.Short)
	require.NoError(t, err)
	train, err := BuildTrain(&p0, &p1, frame.Short)
	require.NoError(t, err)

	// cut packet 0 short so its remainder never completes a frame
	cut := append(phy.Train{}, train[:40]...)
	cut = append(cut, phy.EncodeIdle())
	cut = append(cut, train[frame.Short.Bits():]...)

	capture := newChanCapture()
	capture.batches <- &phy.Batch{Items: phy.DefaultClock.Items(cut)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var recs []*Reception
	rx := NewReceiver(capture, frame.Short)
	rx.Decoder = codec
	rx.Handler = HandleReceptionFunc(func(ctx context.Context, rec *Reception) {
		recs = append(recs, rec)
		cancel()
	})
	require.Equal(t, context.Canceled, rx.Run(ctx))
	require.Len(t, recs, 1)
	require.Equal(t, frame.PacketID(1), recs[0].Frame.PacketID)
	require.Equal(t, rollingcode.ErrUnpaired, recs[0].Err)
	stats := rx.Stats()
	require.Equal(t, uint64(1), stats.DecodeErrors)
	require.Equal(t, uint64(1), stats.Frames)
}

func TestReceiverCaptureError(t *testing.T) {
	capErr := errors.New("overrun")
	rx := NewReceiver(captureFunc(func(context.Context) (*phy.Batch, error) {
		return nil, capErr
	}), frame.Short)
	require.Equal(t, capErr, rx.Run(context.Background()))
	require.Equal(t, frame.Short, rx.Type)
}

type captureFunc func(context.Context) (*phy.Batch, error)

func (f captureFunc) Receive(ctx context.Context) (*phy.Batch, error) { return f(ctx) }
func (f captureFunc) Release(*phy.Batch)                              {}

type blockingTransmitter struct {
	started chan int
	release chan struct{}

	lock        sync.Mutex
	inFlight    int
	maxInFlight int
	lengths     []int
}

func (b *blockingTransmitter) Transmit(ctx context.Context, train phy.Train) error {
	b.lock.Lock()
	b.inFlight++
	if b.inFlight > b.maxInFlight {
		b.maxInFlight = b.inFlight
	}
	b.lock.Unlock()
	b.started <- len(train)
	<-b.release
	b.lock.Lock()
	b.inFlight--
	b.lengths = append(b.lengths, len(train))
	b.lock.Unlock()
	return nil
}

func TestTransmitSerialized(t *testing.T) {
	hw := &blockingTransmitter{started: make(chan int, 2), release: make(chan struct{})}
	tx := NewTransmitter(rollingcode.NewPlain(), hw)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- tx.Transmit(ctx, 1, 2, 0) }()
	require.Equal(t, 149, <-hw.started)

	second := make(chan error, 1)
	go func() { second <- tx.Transmit(ctx, 3, 4, 5) }()
	select {
	case <-hw.started:
		t.Fatal("second train reached the hardware while the first is in flight")
	case <-second:
		t.Fatal("second transmit returned while the first is in flight")
	case <-time.After(50 * time.Millisecond):
	}

	hw.release <- struct{}{}
	require.NoError(t, <-first)
	require.Equal(t, 197, <-hw.started)
	hw.release <- struct{}{}
	require.NoError(t, <-second)

	require.Equal(t, 1, hw.maxInFlight)
	require.Equal(t, []int{149, 197}, hw.lengths)
}

func TestReceiverStructLiteral(t *testing.T) {
	codec := rollingcode.NewPlain()
	p0, p1, err := codec.Encode(5, 6, 0, frame.Short)
	require.NoError(t, err)
	train, err := BuildTrain(&p0, &p1, frame.Short)
	require.NoError(t, err)
	capture := newChanCapture()
	capture.batches <- &phy.Batch{Items: phy.DefaultClock.Items(train)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var fields *rollingcode.Fields
	rx := &Receiver{
		Capture: capture,
		Decoder: rollingcode.NewPlain(),
		Handler: HandleReceptionFunc(func(ctx context.Context, rec *Reception) {
			if rec.Fields != nil {
				fields = rec.Fields
				cancel()
			}
		}),
	}
	require.Equal(t, context.Canceled, rx.Run(ctx))
	require.NotNil(t, fields)
	require.Equal(t, rollingcode.Fields{Rolling: 5, Fixed: 6}, *fields)
	require.Equal(t, uint64(2), rx.Stats().Frames)
}
