// Command admin runs one-off maintenance tasks against the taskdesk
// database: applying migrations, bootstrapping an administrator and
// sweeping expired sessions.
//
// Usage:
//
//	admin migrate
//	admin create-admin -email root@example.com -first Ada -last Admin
//	admin sweep
//
// Connection settings come from the same sources as the server
// (config file, TASKDESK_* environment, -d flag).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/dmitrijs2005/taskdesk/internal/server"
	"github.com/dmitrijs2005/taskdesk/internal/server/config"
	"github.com/dmitrijs2005/taskdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskdesk/internal/server/services"
	"github.com/dmitrijs2005/taskdesk/internal/server/throttle"
	"golang.org/x/term"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: admin <migrate|create-admin|sweep> [flags]")
}

func run(ctx context.Context, args []string, in *os.File, out io.Writer) error {
	cmd := firstCommand(args)
	if cmd == "" {
		usage(out)
		return errors.New("missing command")
	}

	cfg := config.LoadConfig()
	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	db, err := server.OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	switch cmd {
	case "migrate":
		fmt.Fprintln(out, "migrations applied")
		return nil
	case "create-admin", "sweep":
	default:
		usage(out)
		return fmt.Errorf("unknown command %q", cmd)
	}

	th := throttle.New(throttle.NewMemoryCounter(cfg.ThrottleWindow), cfg.ThrottleThreshold, cfg.ThrottleDelay)
	svc, err := server.NewServices(db, rm, cfg, th, logger)
	if err != nil {
		return err
	}

	if cmd == "sweep" {
		n, err := svc.Sessions.SweepExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, sweepReport(n))
		return nil
	}

	req, err := adminRequest(commandArgs(args, cmd), in, out)
	if err != nil {
		return err
	}
	acc, err := svc.Auth.CreateAdmin(ctx, *req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "admin %s created with id %s\n", acc.Email, acc.ID)
	return nil
}

// sweepReport describes a sweep. Expired rows are retired, not deleted.
func sweepReport(n int64) string {
	return fmt.Sprintf("%d expired sessions retired", n)
}

// firstCommand returns the first argument that is not a flag or a flag value
// consumed by the shared configuration flags.
func firstCommand(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") && takesValue(a) {
				i++
			}
			continue
		}
		return a
	}
	return ""
}

func takesValue(flagName string) bool {
	switch strings.TrimLeft(flagName, "-") {
	case "trust-proxy":
		return false
	}
	return true
}

func commandArgs(args []string, cmd string) []string {
	for i, a := range args {
		if a == cmd {
			return args[i+1:]
		}
	}
	return nil
}

func adminRequest(args []string, in *os.File, out io.Writer) (*services.RegisterRequest, error) {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", "", "administrator email")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	password, err := readSecret(in, out, "Password: ")
	if err != nil {
		return nil, err
	}
	confirm, err := readSecret(in, out, "Confirm password: ")
	if err != nil {
		return nil, err
	}

	return &services.RegisterRequest{
		Email:           *email,
		Password:        password,
		ConfirmPassword: confirm,
		FirstName:       *first,
		LastName:        *last,
	}, nil
}

func readSecret(in *os.File, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	b, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
