package main

import (
	"fmt"
	"os"

	"github.com/backset/backset/config"
	"github.com/backset/backset/kit/cli"
)

func main() {
	cfg := &config.Config{}

	prog := &cli.Program{
		Name: "backset",
		Opts: cfg.Opts(),
		Run: func() error {
			return run(cfg)
		},
	}

	cmd := cli.NewCommand(prog)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
