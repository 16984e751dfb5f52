package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/secplus.go/pkg/env"
	fx "github.com/robotalks/secplus.go/pkg/framework"
	"github.com/robotalks/secplus.go/pkg/link"
)

var statsInterval = time.Minute

func init() {
	env.SetupFlags()
	flag.DurationVar(&statsInterval, "stats-interval", statsInterval, "Interval to log receiver stats, 0 to disable")
}

func main() {
	flag.Parse()

	e := env.NewConfig().MustNewEnv()
	rx := e.NewReceiver(env.NewCodec(), link.HandleReceptionFunc(func(ctx context.Context, rec *link.Reception) {
		switch {
		case rec.Err != nil:
			glog.Warningf("%s: %v", rec.Frame, rec.Err)
		case rec.Fields != nil:
			glog.Infof("received %s", rec.Fields)
		}
	}))

	runner := fx.NewRunner().HandleSignals().Go(e, rx)
	if statsInterval > 0 {
		runner.Go(fx.NamedRun("stats", fx.RunFunc(func(ctx context.Context) error {
			ticker := time.NewTicker(statsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					st := rx.Stats()
					glog.Infof("stats: frames=%d idle-gaps=%d discarded=%d decode-errors=%d",
						st.Frames, st.IdleGaps, st.Discarded, st.DecodeErrors)
				}
			}
		})))
	}
	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
