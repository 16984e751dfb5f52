package radio

import (
	"strings"
	"testing"

	"github.com/abiosoft/ishell"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/secplus.go/pkg/frame"
	"github.com/robotalks/secplus.go/pkg/link"
	"github.com/robotalks/secplus.go/pkg/phy"
	"github.com/robotalks/secplus.go/pkg/rollingcode"
)

func TestPackArgs(t *testing.T) {
	out, err := packArgs([]string{"1", "short", "deadbeef01234567"})
	require.NoError(t, err)
	require.Equal(t, &packOutput{Bits: 62, Frame: "0000f77ab6fbbc04"}, out)

	out, err = packArgs([]string{"0", "long", "00"})
	require.NoError(t, err)
	require.Equal(t, 86, out.Bits)
	require.Len(t, out.Frame, 22)

	for _, args := range [][]string{
		{"1", "short"},
		{"x", "short", "00"},
		{"1", "medium", "00"},
		{"1", "short", "zz"},
		{"1", "short", "000000000000000000"},
		{"2", "short", "00"},
	} {
		_, err = packArgs(args)
		require.Error(t, err, "%v", args)
	}
}

func TestParseFields(t *testing.T) {
	f, ok := parseFields(&ishell.Context{Args: []string{"0x10", "12345", "0xbeef"}})
	require.True(t, ok)
	require.Equal(t, fieldArgs{rolling: 16, fixed: 12345, data: 0xbeef}, f)

	f, ok = parseFields(&ishell.Context{Args: []string{"1", "2"}})
	require.True(t, ok)
	require.Zero(t, f.data)
}

func TestFormatTrain(t *testing.T) {
	p0, p1, err := rollingcode.NewPlain().Encode(1, 2, 0, frame.Short)
	require.NoError(t, err)
	train, err := link.BuildTrain(&p0, &p1, frame.Short)
	require.NoError(t, err)
	lines := strings.Split(formatTrain(train, phy.DefaultClock), "\n")
	require.Len(t, lines, len(train)+1)
	require.True(t, strings.HasPrefix(lines[0], "  0 007d807d "))
	require.Equal(t, "149 pulses, "+train.Duration().String(), lines[len(lines)-1])
}
