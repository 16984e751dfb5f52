// Package radio provides shell commands to transmit and receive.
package radio

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/secplus.go/pkg/cli/sh"
	"github.com/robotalks/secplus.go/pkg/frame"
	"github.com/robotalks/secplus.go/pkg/link"
	"github.com/robotalks/secplus.go/pkg/phy"
)

// DefaultListenDuration is used when listen has no SECONDS.
const DefaultListenDuration = 10 * time.Second

type fieldArgs struct {
	rolling uint32
	fixed   uint64
	data    uint32
}

func parseFields(c *ishell.Context) (f fieldArgs, ok bool) {
	var val uint64
	if val, ok = sh.ParseUint(c, 0, "ROLLING", 32); !ok {
		return
	}
	f.rolling = uint32(val)
	if f.fixed, ok = sh.ParseUint(c, 1, "FIXED", 64); !ok {
		return
	}
	if len(c.Args) > 2 {
		if val, ok = sh.ParseUint(c, 2, "DATA", 32); !ok {
			return
		}
		f.data = uint32(val)
	}
	return f, true
}

type trainOutput struct {
	Type     string     `json:"type"`
	Pulses   int        `json:"pulses"`
	Duration string     `json:"duration"`
	Items    []phy.Item `json:"items"`
}

func formatTrain(train phy.Train, clock phy.Clock) string {
	var w bytes.Buffer
	for n, p := range train {
		fmt.Fprintf(&w, "%3d %08x %s\n", n, uint32(clock.Item(p)), p)
	}
	fmt.Fprintf(&w, "%d pulses, %v", len(train), train.Duration())
	return w.String()
}

type packOutput struct {
	Bits  int    `json:"bits"`
	Frame string `json:"frame"`
}

func packArgs(args []string) (*packOutput, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("ID TYPE HEX required")
	}
	id, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid ID: %v", err)
	}
	typ, err := frame.ParseType(args[1])
	if err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(args[2])
	if err != nil {
		return nil, fmt.Errorf("invalid HEX: %v", err)
	}
	if len(raw) > frame.PacketSize {
		return nil, fmt.Errorf("HEX exceeds %d bytes", frame.PacketSize)
	}
	var packet frame.Packet
	copy(packet[:], raw)
	buf := make([]byte, typ.Bytes())
	n, err := frame.Pack(buf, &packet, frame.PacketID(id), typ)
	if err != nil {
		return nil, err
	}
	return &packOutput{Bits: n, Frame: hex.EncodeToString(buf)}, nil
}

var (
	// SendCmd transmits a rolling code.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"tx"},
		Help:    "ROLLING FIXED [DATA]",
		Func: func(c *ishell.Context) {
			f, ok := parseFields(c)
			if !ok {
				return
			}
			s := sh.ShellFrom(c)
			if err := s.Transmitter.Transmit(s.Context(), f.rolling, f.fixed, f.data); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}

	// TrainCmd prints the pulse train without transmitting.
	TrainCmd = ishell.Cmd{
		Name: "train",
		Help: "ROLLING FIXED [DATA]",
		Func: func(c *ishell.Context) {
			f, ok := parseFields(c)
			if !ok {
				return
			}
			s := sh.ShellFrom(c)
			typ := frame.TypeFor(f.data)
			p0, p1, err := s.Codec.Encode(f.rolling, f.fixed, f.data, typ)
			if err != nil {
				c.Err(err)
				return
			}
			train, err := link.BuildTrain(&p0, &p1, typ)
			if err != nil {
				c.Err(err)
				return
			}
			clock := s.Env.Config.Clock()
			s.Output(c, &trainOutput{
				Type:     typ.String(),
				Pulses:   len(train),
				Duration: train.Duration().String(),
				Items:    clock.Items(train),
			}, formatTrain(train, clock))
		},
	}

	// PackCmd prints a packed frame.
	PackCmd = ishell.Cmd{
		Name: "pack",
		Help: "ID TYPE HEX",
		Func: func(c *ishell.Context) {
			out, err := packArgs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.ShellFrom(c).Output(c, out, fmt.Sprintf("%s (%d bits)", out.Frame, out.Bits))
		},
	}

	// ListenCmd receives and prints frames.
	ListenCmd = ishell.Cmd{
		Name:    "listen",
		Aliases: []string{"rx"},
		Help:    "[SECONDS]",
		Func: func(c *ishell.Context) {
			dur := DefaultListenDuration
			if len(c.Args) > 0 {
				secs, err := strconv.ParseFloat(c.Args[0], 64)
				if err != nil {
					c.Err(fmt.Errorf("invalid SECONDS: %v", err))
					return
				}
				dur = time.Duration(secs * float64(time.Second))
			}
			s := sh.ShellFrom(c)
			ctx, cancel := context.WithTimeout(s.Context(), dur)
			defer cancel()
			rx := s.Env.NewReceiver(s.Codec, link.HandleReceptionFunc(func(ctx context.Context, rec *link.Reception) {
				switch {
				case rec.Err != nil:
					c.Printf("%s: %v\n", rec.Frame, rec.Err)
				case rec.Fields != nil:
					s.Output(c, rec.Fields, rec.Fields.String())
				default:
					c.Println(rec.Frame.String())
				}
			}))
			if err := rx.Run(ctx); err != nil && err != context.DeadlineExceeded {
				c.Err(err)
			}
			stats := rx.Stats()
			s.LastStats = &stats
		},
	}

	// StatsCmd prints the receiver stats of the last listen.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			if s.LastStats == nil {
				c.Err(fmt.Errorf("nothing received yet"))
				return
			}
			st := s.LastStats
			s.Output(c, st, fmt.Sprintf("batches=%d pulses=%d idle-gaps=%d frames=%d discarded=%d decode-errors=%d",
				st.Batches, st.Pulses, st.IdleGaps, st.Frames, st.Discarded, st.DecodeErrors))
		},
	}
)

func init() {
	sh.AddCmds(
		&SendCmd,
		&TrainCmd,
		&PackCmd,
		&ListenCmd,
		&StatsCmd,
	)
}
