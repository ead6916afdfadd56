package main

import (
	"github.com/devopsext/measured/cmd"
)

var VERSION = "unknown"

func main() {
	cmd.VERSION = VERSION
	cmd.Execute()
}
