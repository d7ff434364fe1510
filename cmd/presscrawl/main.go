// The main package for the presscrawl executable.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"presscrawl/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "presscrawl: %v\n", err)
		os.Exit(1)
	}
}
