// Command stategraph runs the bundled workflows and inspects their traces.
//
//	stategraph run research "how do vector databases scale"
//	stategraph graph research
//	stategraph trace --trace sqlite:trace.db
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
