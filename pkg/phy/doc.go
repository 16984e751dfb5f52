// Package phy provides the physical layer of the rolling-code radio link.
//
// The radio is on/off keyed at 4000 baud. Every data bit occupies one
// Pulse (two half cells) and is Manchester coded: the level of the first
// half carries the bit and the level flips at mid cell.
//
// Pulses are expressed in real time (time.Duration). Peripherals exchange
// raw Items, 32-bit words holding tick counts, and a Clock converts between
// the two domains.
package phy
