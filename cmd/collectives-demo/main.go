// Command collectives-demo stands up a cluster from a JSON config file and
// drives one of the seven collectives end to end over pkg/tcphandle.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
