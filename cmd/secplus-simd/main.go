package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"net"
	"net/http"

	"github.com/golang/glog"
	xws "golang.org/x/net/websocket"

	"github.com/robotalks/secplus.go/pkg/env"
	fx "github.com/robotalks/secplus.go/pkg/framework"
	"github.com/robotalks/secplus.go/pkg/hw/remote"
	"github.com/robotalks/secplus.go/pkg/hw/remote/mqtt"
	"github.com/robotalks/secplus.go/pkg/hw/remote/stream"
	"github.com/robotalks/secplus.go/pkg/hw/remote/websocket"
	"github.com/robotalks/secplus.go/pkg/hw/sim"
)

var (
	tcpAddr  string
	wsAddr   string
	mqttURL  string
	realtime bool
)

func init() {
	flag.StringVar(&tcpAddr, "listen", tcpAddr, "Serve over TCP on this address")
	flag.StringVar(&wsAddr, "ws", wsAddr, "Serve over websocket on this address, path /peripheral")
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "Serve over MQTT broker URL")
	flag.BoolVar(&realtime, "realtime", realtime, "Transmit takes air time")
	flag.StringVar(&env.Default().Device, "device", env.Default().Device, "Device name on MQTT")
}

func serveTCP(hw *sim.Loopback) fx.Runnable {
	return fx.NamedRun("tcp", fx.RunFunc(func(ctx context.Context) error {
		ln, err := net.Listen("tcp", tcpAddr)
		if err != nil {
			return err
		}
		glog.Infof("serving on tcp %s", ln.Addr())
		return fx.RunWithContextCloser(ctx, ln, func() error {
			for {
				conn, err := ln.Accept()
				if err != nil {
					return err
				}
				glog.Infof("client %s connected", conn.RemoteAddr())
				go func() {
					err := remote.NewServer(stream.New(conn), hw).Run(ctx)
					glog.Infof("client %s disconnected: %v", conn.RemoteAddr(), err)
				}()
			}
		})
	}))
}

func serveWebsocket(hw *sim.Loopback) fx.Runnable {
	return fx.NamedRun("websocket", fx.RunFunc(func(ctx context.Context) error {
		mux := http.NewServeMux()
		mux.Handle("/peripheral", xws.Handler(func(conn *xws.Conn) {
			err := remote.NewServer(websocket.New(conn), hw).Run(ctx)
			glog.Infof("websocket client disconnected: %v", err)
		}))
		srv := &http.Server{Addr: wsAddr, Handler: mux}
		glog.Infof("serving on ws://%s/peripheral", wsAddr)
		return fx.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
	}))
}

func serveMQTT(hw *sim.Loopback) (fx.Runnable, error) {
	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		return nil, err
	}
	if err = q.Connect(); err != nil {
		return nil, err
	}
	device := env.Default().Device
	glog.Infof("serving on %s as %s", mqttURL, device)
	rw := mqtt.NewPacketReadWriter(q).ForDevice(device)
	return fx.NamedRun("mqtt", fx.RunFunc(func(ctx context.Context) error {
		defer q.Close()
		return remote.NewServer(rw, hw).Run(ctx)
	})), nil
}

func main() {
	flag.Parse()

	hw := sim.NewLoopback(0)
	hw.Realtime = realtime
	runner := fx.NewRunner().HandleSignals()
	if tcpAddr != "" {
		runner.Go(serveTCP(hw))
	}
	if wsAddr != "" {
		runner.Go(serveWebsocket(hw))
	}
	if mqttURL != "" {
		r, err := serveMQTT(hw)
		if err != nil {
			glog.Exit(err)
		}
		runner.Go(r)
	}
	if len(runner.Runners) == 0 {
		glog.Exit("at least one of -listen, -ws, -mqtt is required")
	}
	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
