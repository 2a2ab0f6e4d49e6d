package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chazuruo/circli/internal/cli"
)

// Version is set at build time using ldflags
var Version = "dev"

// Commit is set at build time using ldflags
var Commit = "unknown"

// Date is set at build time using ldflags
var Date = "unknown"

// BuiltBy is set at build time using ldflags
var BuiltBy = ""

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.NewApp(cli.BuildInfo{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
		BuiltBy: BuiltBy,
	}), os.Args[1:])
	stop()
	os.Exit(code)
}
