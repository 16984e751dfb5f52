// Package env builds the link components from flags and environment.
package env

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/secplus.go/pkg/frame"
	"github.com/robotalks/secplus.go/pkg/hw/remote"
	"github.com/robotalks/secplus.go/pkg/hw/remote/mqtt"
	"github.com/robotalks/secplus.go/pkg/hw/remote/stream"
	"github.com/robotalks/secplus.go/pkg/hw/remote/websocket"
	"github.com/robotalks/secplus.go/pkg/hw/sim"
	"github.com/robotalks/secplus.go/pkg/phy"
	"github.com/robotalks/secplus.go/pkg/rollingcode"
)

// Config provides common options to set up the link.
type Config struct {
	// PeripheralURL selects the peripheral, e.g.
	//   sim://?depth=16&realtime=true
	//   tcp://host:port
	//   ws://host:port/path
	//   mqtt://host:port/topic-prefix/
	PeripheralURL string
	// Device names the peripheral on an MQTT broker.
	Device string
	// FrameType is the payload length expected on receive.
	FrameType string
	// TickPeriod is the peripheral clock tick.
	TickPeriod time.Duration
	// MaxPulses is the peripheral capacity, 0 for unlimited.
	MaxPulses int
	// AckMargin is added to the train duration when waiting for a remote
	// peripheral to acknowledge a transmit.
	AckMargin time.Duration
}

// DefaultMaxPulses is the default peripheral capacity.
const DefaultMaxPulses = 256

var defaultConfig = Config{
	PeripheralURL: "sim://",
	FrameType:     frame.Short.String(),
	TickPeriod:    phy.DefaultClock.TickPeriod,
	MaxPulses:     DefaultMaxPulses,
	AckMargin:     remote.DefaultAckMargin,
}

func init() {
	if val := os.Getenv("SECPLUS_PERIPHERAL_URL"); val != "" {
		defaultConfig.PeripheralURL = val
	}
	if val := os.Getenv("SECPLUS_DEVICE"); val != "" {
		defaultConfig.Device = val
	} else {
		defaultConfig.Device = MachineID()
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.PeripheralURL, "peripheral", defaultConfig.PeripheralURL, "Peripheral URL: sim://, tcp://, ws://, mqtt://")
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Peripheral device name on MQTT")
	flag.StringVar(&defaultConfig.FrameType, "frame-type", defaultConfig.FrameType, "Receive frame type: short, long")
	flag.DurationVar(&defaultConfig.TickPeriod, "tick", defaultConfig.TickPeriod, "Peripheral clock tick")
	flag.IntVar(&defaultConfig.MaxPulses, "max-pulses", defaultConfig.MaxPulses, "Peripheral pulse capacity, 0 for unlimited")
	flag.DurationVar(&defaultConfig.AckMargin, "ack-margin", defaultConfig.AckMargin, "Extra time to wait for transmit acknowledgement")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Clock returns the peripheral clock.
func (c *Config) Clock() phy.Clock {
	return phy.Clock{TickPeriod: c.TickPeriod}
}

// NewEnv connects the peripheral.
func (c *Config) NewEnv() (*Env, error) {
	typ, err := frame.ParseType(c.FrameType)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(c.PeripheralURL)
	if err != nil {
		return nil, fmt.Errorf("invalid peripheral URL %q: %w", c.PeripheralURL, err)
	}
	env := &Env{Config: c, FrameType: typ}
	switch u.Scheme {
	case "sim":
		env.Peripheral, err = c.newLoopback(u)
	case "tcp":
		var rw *stream.ReadWriter
		if rw, err = stream.Dial(u.Host); err == nil {
			env.Peripheral = c.newRemote(env, rw)
		}
	case "ws", "wss":
		var rw *websocket.ReadWriter
		if rw, err = websocket.Dial(u.String(), websocketOrigin(u)); err == nil {
			env.Peripheral = c.newRemote(env, rw)
		}
	case "mqtt", "ssl":
		var q *mqtt.Queue
		if q, err = mqtt.NewQueueFromURL(c.PeripheralURL); err != nil {
			break
		}
		if err = q.Connect(); err != nil {
			break
		}
		env.closers = append(env.closers, q.Close)
		env.Peripheral = c.newRemote(env, mqtt.NewPacketReadWriter(q).ForClient(c.Device))
	default:
		return nil, fmt.Errorf("unsupported peripheral scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("connect peripheral %q: %w", c.PeripheralURL, err)
	}
	glog.Infof("peripheral %s, receive %s frames", c.PeripheralURL, typ)
	return env, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		glog.Exit(err)
	}
	return env
}

func (c *Config) newLoopback(u *url.URL) (*sim.Loopback, error) {
	query := u.Query()
	depth := sim.DefaultQueueDepth
	if val := query.Get("depth"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid depth %q: %w", val, err)
		}
		depth = n
	}
	l := sim.NewLoopback(depth)
	l.Clock = c.Clock()
	if val := query.Get("realtime"); val != "" {
		realtime, err := strconv.ParseBool(val)
		if err != nil {
			return nil, fmt.Errorf("invalid realtime %q: %w", val, err)
		}
		l.Realtime = realtime
	}
	return l, nil
}

func (c *Config) newRemote(env *Env, rw remote.PacketReadWriter) *remote.Peripheral {
	p := remote.NewPeripheral(rw)
	p.Clock = c.Clock()
	p.AckMargin = c.AckMargin
	env.runnables = append(env.runnables, p)
	return p
}

func websocketOrigin(u *url.URL) string {
	scheme := "http"
	if u.Scheme == "wss" {
		scheme = "https"
	}
	return scheme + "://" + u.Host + "/"
}

// NewCodec creates the rolling-code codec.
func NewCodec() rollingcode.Codec {
	return rollingcode.NewPlain()
}
