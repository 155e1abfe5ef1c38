package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cory-johannsen/texla/internal/client"
)

const defaultServer = client.DefaultURL

// session pumps stdin lines to the server and prints replies until stdin
// ends, the server hangs up, or the process is interrupted.
func session(ctx context.Context, server string, stdin io.Reader, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	in := make(chan string)
	out := make(chan client.Output, 16)

	go func() {
		defer close(in)
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			select {
			case in <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for o := range out {
			if o.IsWarning() {
				fmt.Fprintf(stderr, "warning: %s\n", o.Warning)
				continue
			}
			fmt.Fprintln(stdout, o.Text)
		}
	}()

	err := client.Run(ctx, server, in, out)
	close(out)
	<-printed
	if err != nil && ctx.Err() != nil {
		// Interrupted by the user.
		return nil
	}
	return err
}
