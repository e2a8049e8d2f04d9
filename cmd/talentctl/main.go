// Command talentctl is a terminal client for the talent finder service.
//
// Usage:
//
//	talentctl <command> [flags]
//
// Commands: login, signup, logout, me, search, profile, upload, status, clear.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fairyhunter13/talentfinder/internal/adapter/observability"
	"github.com/fairyhunter13/talentfinder/internal/app"
	"github.com/fairyhunter13/talentfinder/internal/config"
)

const usage = `usage: talentctl <command> [flags]

commands:
  login    -email E -password P        log in and store the token
  signup   -name N -email E -number M -password P
  logout                               forget the stored token
  me                                   show the logged-in user
  search   -jd TEXT [-skills a,b] [-top-k N] [-min-exp Y] [-require a,b]
           [-sort relevance|experience] [-page N] [-xlsx FILE]
  profile  ID                          show one candidate
  upload   FILE.zip                    upload resumes and follow processing
  status                               show the resume store status
  clear    -yes                        delete every stored resume

every command accepts -o json|yaml
`

var errUsage = errors.New("usage")

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(observability.SetupCLILogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run executes one command. Results go to stdout, progress to stderr.
func run(ctx context.Context, cfg config.Config, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		return errUsage
	}
	c, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	return cmd(ctx, &env{c: c, stdout: stdout, stderr: stderr}, args[1:])
}
