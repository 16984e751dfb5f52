package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/secplus.go/pkg/env"
	"github.com/robotalks/secplus.go/pkg/link"
	"github.com/robotalks/secplus.go/pkg/rollingcode"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell       *ishell.Shell
	Env         *env.Env
	Codec       rollingcode.Codec
	Transmitter *link.Transmitter

	// LastStats is the receiver stats of the last listen.
	LastStats *link.Stats

	ctx    context.Context
	cancel func()
}

const shellKey = "$shell"

var (
	// flags

	evalOnly   bool
	outputJSON bool

	commands []*ishell.Cmd
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell on a connected Env.
func New(e *env.Env) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell: ishell.New(),
		Env:   e,
		Codec: env.NewCodec(),
	}
	s.Transmitter = e.NewTransmitter(s.Codec)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", e.Config.PeripheralURL))
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Context is canceled when the shell exits.
func (s *Shell) Context() context.Context {
	return s.ctx
}

// Output prints v as JSON if OutputJSON, otherwise the text.
func (s *Shell) Output(c *ishell.Context, v interface{}, text string) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// ParseUint parses a decimal or 0x-prefixed argument.
func ParseUint(c *ishell.Context, index int, name string, bits int) (uint64, bool) {
	if index >= len(c.Args) {
		c.Err(fmt.Errorf("%s required", name))
		return 0, false
	}
	val, err := strconv.ParseUint(c.Args[index], 0, bits)
	if err != nil {
		c.Err(fmt.Errorf("invalid %s: %v", name, err))
		return 0, false
	}
	return val, true
}

// Run runs the shell.
func (s *Shell) Run(args ...string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Env.Run(s.ctx) }()
	defer func() {
		s.cancel()
		if err := <-errCh; err != nil && err != context.Canceled {
			glog.Errorf("peripheral: %v", err)
		}
	}()

	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if s.Interactive {
		s.Shell.Run()
		return nil
	}
	return fmt.Errorf("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	if err := New(env.NewConfig().MustNewEnv()).Run(flag.Args()...); err != nil {
		glog.Exit(err)
	}
}
