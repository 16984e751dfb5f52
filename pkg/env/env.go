package env

import (
	"context"

	fx "github.com/robotalks/secplus.go/pkg/framework"
	"github.com/robotalks/secplus.go/pkg/frame"
	"github.com/robotalks/secplus.go/pkg/link"
	"github.com/robotalks/secplus.go/pkg/rollingcode"
)

// Env holds a connected peripheral.
type Env struct {
	Config     *Config
	Peripheral link.Peripheral
	FrameType  frame.Type

	runnables []fx.Runnable
	closers   []func() error
}

// NewTransmitter creates a Transmitter on the peripheral.
func (e *Env) NewTransmitter(enc rollingcode.Encoder) *link.Transmitter {
	tx := link.NewTransmitter(enc, e.Peripheral)
	tx.MaxPulses = e.Config.MaxPulses
	return tx
}

// NewReceiver creates a Receiver on the peripheral.
func (e *Env) NewReceiver(dec rollingcode.Decoder, handler link.ReceptionHandler) *link.Receiver {
	rx := link.NewReceiver(e.Peripheral, e.FrameType)
	rx.Clock = e.Config.Clock()
	rx.Decoder = dec
	rx.Handler = handler
	return rx
}

// Name implements framework.Named.
func (e *Env) Name() string {
	return "env"
}

// Run implements Runnable. It keeps the peripheral connection alive until
// ctx is done.
func (e *Env) Run(ctx context.Context) error {
	defer e.close()
	if len(e.runnables) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	return fx.NewRunnerWith(ctx).Go(e.runnables...).Wait()
}

func (e *Env) close() {
	for _, fn := range e.closers {
		fn()
	}
}
