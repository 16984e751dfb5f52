// Package link implements the transmit and receive pipelines of the
// rolling-code radio link.
package link

import (
	"context"

	"github.com/robotalks/secplus.go/pkg/frame"
	"github.com/robotalks/secplus.go/pkg/phy"
	"github.com/robotalks/secplus.go/pkg/rollingcode"
)

// PulseTransmitter is the transmit channel of a pulse peripheral.
type PulseTransmitter interface {
	// Transmit emits the whole Train without interruption and returns
	// once it is physically sent.
	Transmit(context.Context, phy.Train) error
}

// PulseCapture is the capture channel of a pulse peripheral.
type PulseCapture interface {
	// Receive blocks until a batch is captured or ctx is done.
	Receive(context.Context) (*phy.Batch, error)
	// Release hands a batch back to the peripheral.
	Release(*phy.Batch)
}

// Reception is the outcome of one received frame.
type Reception struct {
	Frame *frame.Frame
	// Fields is set once the decoder has seen all packets of a transmission.
	Fields *rollingcode.Fields
	// Err is the decoder error, if any.
	Err error
}

// ReceptionHandler is called for every received frame.
type ReceptionHandler interface {
	HandleReception(context.Context, *Reception)
}

// HandleReceptionFunc is func form of ReceptionHandler.
type HandleReceptionFunc func(context.Context, *Reception)

// HandleReception implements ReceptionHandler.
func (f HandleReceptionFunc) HandleReception(ctx context.Context, rec *Reception) {
	f(ctx, rec)
}
