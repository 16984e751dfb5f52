package phy

import (
	"fmt"
	"time"
)

// Level is the radio output level of a half cell.
type Level uint8

// Levels.
const (
	Off Level = 0
	On  Level = 1
)

// String implements fmt.Stringer.
func (l Level) String() string {
	if l == Off {
		return "off"
	}
	return "on"
}

// Pulse is a pair of half cells.
type Pulse struct {
	Duration0 time.Duration
	Level0    Level
	Duration1 time.Duration
	Level1    Level
}

// Duration is the total duration of both halves.
func (p Pulse) Duration() time.Duration {
	return p.Duration0 + p.Duration1
}

// IsIdle reports whether the Pulse is an idle gap marker rather than a
// data bit: both halves off and each longer than a full bit cell.
func (p Pulse) IsIdle() bool {
	return p.Level0 == Off && p.Level1 == Off &&
		p.Duration0 > BitCell && p.Duration1 > BitCell
}

// String implements fmt.Stringer.
func (p Pulse) String() string {
	return fmt.Sprintf("%s:%v/%s:%v", p.Level0, p.Duration0, p.Level1, p.Duration1)
}

// Train is an ordered sequence of Pulses emitted without interruption.
type Train []Pulse

// Duration is the air time of the whole Train.
func (t Train) Duration() (d time.Duration) {
	for _, p := range t {
		d += p.Duration()
	}
	return
}

// Item is the raw 32-bit pulse word exchanged with peripherals:
//
//	bit  0-14 duration0 (ticks)
//	bit    15 level0
//	bit 16-30 duration1 (ticks)
//	bit    31 level1
type Item uint32

// MakeItem assembles an Item. Tick counts are masked to 15 bits.
func MakeItem(ticks0 uint32, level0 Level, ticks1 uint32, level1 Level) Item {
	return Item((ticks0 & TickMask) |
		uint32(level0&1)<<15 |
		(ticks1&TickMask)<<16 |
		uint32(level1&1)<<31)
}

// Ticks0 is the raw duration of the first half.
func (i Item) Ticks0() uint32 { return uint32(i) & TickMask }

// Level0 is the level of the first half.
func (i Item) Level0() Level { return Level(uint32(i) >> 15 & 1) }

// Ticks1 is the raw duration of the second half.
func (i Item) Ticks1() uint32 { return uint32(i) >> 16 & TickMask }

// Level1 is the level of the second half.
func (i Item) Level1() Level { return Level(uint32(i) >> 31 & 1) }

// Batch is a group of Items captured by a peripheral.
type Batch struct {
	Items []Item
}
