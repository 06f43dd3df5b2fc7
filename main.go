package main

import (
	"github.com/sidkik/davsync/cmd"
	"github.com/sidkik/davsync/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
