// Command pdnd-client obtains a PDND voucher and calls e-service endpoints
// with it.
//
// Usage:
//
//	pdnd-client --env collaudo --status-url https://api.example.it/status
//	pdnd-client --api-url https://api.example.it/v1/items --api-url-filters "page=1&size=50" --pretty
//
// Settings are read from the selected environment of the configuration
// file and may be overridden by PDND_* variables, also from a .env file in
// the working directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sserr "github.com/StricklySoft/pdnd-client/pkg/errors"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(sserr.ExitCode(err))
	}
}
