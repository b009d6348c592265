package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

func (a *App) status() string {
	if a.api.Token() == "" {
		return "guest"
	}
	return "logged in"
}

// Shell runs a read-eval-print loop until EOF, "exit" or ctx is done. The
// token from login stays in memory for the rest of the session.
func (a *App) Shell(ctx context.Context) {
	fmt.Fprintln(a.out, "peach shell (type 'help' for commands)")

	for ctx.Err() == nil {
		fmt.Fprintf(a.out, "peach (%s)> ", a.status())

		line, err := a.reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			fmt.Fprintln(a.out)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			fmt.Fprintln(a.out, "Available commands: register, login, me, ping, logout, exit")
			continue
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return
		case "shell":
			fmt.Fprintln(a.out, "Already in the shell")
			continue
		}

		if err := a.Run(ctx, append([]string{cmd}, args...)); err != nil {
			fmt.Fprintln(a.out, "error:", err)
		}
	}
}
