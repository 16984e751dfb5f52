package phy

// EncodeBit encodes one data bit. A 1 is sent off-then-on, a 0 on-then-off.
func EncodeBit(bit bool) Pulse {
	p := Pulse{Duration0: HalfBit, Duration1: HalfBit}
	if bit {
		p.Level0, p.Level1 = Off, On
	} else {
		p.Level0, p.Level1 = On, Off
	}
	return p
}

// EncodeIdle encodes one idle gap Pulse. It carries no data.
func EncodeIdle() Pulse {
	return Pulse{Duration0: IdleHalf, Level0: Off, Duration1: IdleHalf, Level1: Off}
}

// DecodeBit recovers a data bit from a Pulse.
//
// When the halves differ in level the direction of the mid-cell transition
// gives the bit. Without a visible transition the half durations are
// compared instead: the bit is 1 if the first half is longer, so equal
// durations decode to 0. No tolerance is applied and a mis-timed pulse
// silently yields the wrong bit.
func DecodeBit(p Pulse) bool {
	if p.Level0 != p.Level1 {
		return p.Level0 == Off
	}
	return p.Duration0 > p.Duration1
}

// EncodeBits encodes bits MSB-first from buf, appending to train.
func EncodeBits(train Train, buf []byte, bits int) Train {
	for i := 0; i < bits; i++ {
		train = append(train, EncodeBit(buf[i/8]>>(7-uint(i%8))&1 != 0))
	}
	return train
}
