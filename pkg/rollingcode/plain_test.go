package rollingcode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/secplus.go/pkg/frame"
)

func TestPlainRoundTrip(t *testing.T) {
	testCases := []struct {
		name   string
		fields Fields
	}{
		{"short", Fields{Rolling: 1, Fixed: 0xaabbccddee}},
		{"long", Fields{Rolling: 0x01020304, Fixed: 0x1122334455, Data: 0x1234}},
		{"long high data", Fields{Rolling: 0xffffffff, Fixed: MaxFixed, Data: 0xdeadbeef}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewPlain()
			typ := frame.TypeFor(tc.fields.Data)
			p0, p1, err := c.Encode(tc.fields.Rolling, tc.fields.Fixed, tc.fields.Data, typ)
			require.NoError(t, err)

			f, err := c.Decode(0, p0, typ)
			require.NoError(t, err)
			require.Nil(t, f)
			f, err = c.Decode(1, p1, typ)
			require.NoError(t, err)
			require.Equal(t, tc.fields, *f)
		})
	}
}

func TestPlainShortFitsPayload(t *testing.T) {
	p0, p1, err := NewPlain().Encode(7, 0xaabbccddee, 0, frame.Short)
	require.NoError(t, err)
	// nothing beyond the 40 payload bits
	require.Equal(t, []byte{0, 0, 0}, p0[5:])
	require.Equal(t, []byte{0, 0, 0, 0}, p1[4:])
}

func TestPlainErrors(t *testing.T) {
	c := NewPlain()
	_, _, err := c.Encode(1, MaxFixed+1, 0, frame.Short)
	require.Equal(t, ErrFixedRange, err)

	_, err = c.Decode(1, frame.Packet{}, frame.Short)
	require.Equal(t, ErrUnpaired, err)
}
