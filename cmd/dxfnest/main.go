// Command dxfnest converts DXF drawings into nesting jobs for the Sparrow
// strip packing solver and optionally runs the solver on them.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
