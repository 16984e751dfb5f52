package phy

import "time"

// Protocol timing.
const (
	// BaudRate is the symbol rate of the link.
	BaudRate = 4000
	// BitCell is the duration of one data bit cell (250us).
	BitCell = time.Second / BaudRate
	// IdleCell is the duration of one symbol cell of the slow idle period (2.5ms).
	IdleCell = 10 * BitCell

	// HalfBit is the duration of each half of a data Pulse.
	HalfBit = BitCell / 2
	// IdleHalf is the duration of each half of an idle Pulse.
	IdleHalf = BitCell * 2
)

// TickMask masks the valid bits of a duration field in an Item.
const TickMask uint32 = 0x7fff

// Clock converts between peripheral ticks and real time.
type Clock struct {
	// TickPeriod is the duration of one peripheral tick.
	TickPeriod time.Duration
}

// DefaultClock is a 1MHz peripheral clock (80MHz APB divided by 80).
var DefaultClock = Clock{TickPeriod: time.Microsecond}

func (c Clock) period() time.Duration {
	if c.TickPeriod <= 0 {
		return DefaultClock.TickPeriod
	}
	return c.TickPeriod
}

// Duration converts a raw tick value into time. Only the low 15 bits of
// the value are significant.
func (c Clock) Duration(ticks uint32) time.Duration {
	return time.Duration(ticks&TickMask) * c.period()
}

// Ticks converts a duration into ticks, saturating at TickMask.
func (c Clock) Ticks(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	ticks := d / c.period()
	if ticks > time.Duration(TickMask) {
		return TickMask
	}
	return uint32(ticks)
}

// Item converts a Pulse into a raw peripheral Item.
func (c Clock) Item(p Pulse) Item {
	return MakeItem(c.Ticks(p.Duration0), p.Level0, c.Ticks(p.Duration1), p.Level1)
}

// Pulse converts a raw peripheral Item into a Pulse.
func (c Clock) Pulse(item Item) Pulse {
	return Pulse{
		Duration0: c.Duration(item.Ticks0()),
		Level0:    item.Level0(),
		Duration1: c.Duration(item.Ticks1()),
		Level1:    item.Level1(),
	}
}

// Items converts a whole Train.
func (c Clock) Items(train Train) []Item {
	items := make([]Item, len(train))
	for n, p := range train {
		items[n] = c.Item(p)
	}
	return items
}
