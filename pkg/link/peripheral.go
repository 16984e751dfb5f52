package link

// Peripheral is a pulse peripheral with both transmit and capture channels.
type Peripheral interface {
	PulseTransmitter
	PulseCapture
}
