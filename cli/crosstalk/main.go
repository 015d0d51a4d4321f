package main

import (
	"os"

	crosstalkcmder "github.com/crosstalkco/crosstalk/cmd/crosstalk"
)

func main() {
	cmd := crosstalkcmder.NewCrosstalkCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
