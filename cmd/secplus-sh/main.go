package main

import (
	"github.com/robotalks/secplus.go/pkg/cli/sh"
	"github.com/robotalks/secplus.go/pkg/env"

	_ "github.com/robotalks/secplus.go/pkg/cli/cmds/radio"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
