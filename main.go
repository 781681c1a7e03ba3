package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/makotom/ladderspeed/cli"
)

var (
	BuildName       = "dev"
	BuildAnnotation = "git"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand(fmt.Sprintf("%s (%s)", BuildName, BuildAnnotation))
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
