// Command todo manages a todo list against a remote API, falling back to
// backup API addresses when the primary is unreachable.
//
// Usage:
//
//	todo [global flags] <command> [command flags]
//
// Commands: list, people, add, edit, done, rm.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	// Optional; variables already set in the environment win.
	_ = godotenv.Load(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "todo:", err)
		os.Exit(1)
	}
}
