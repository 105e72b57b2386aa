// Package shell is the interactive terminal front end of notekeeper. It only
// gathers input and renders results; every rule lives in the services.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"notekeeper/internal/credential"
	"notekeeper/internal/domain"
	"notekeeper/internal/service"
)

type Shell struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	fd          int

	credentials service.CredentialService
	records     service.RecordService
	logger      logrus.FieldLogger

	user *domain.UserSummary
}

func New(in io.Reader, out io.Writer, credentials service.CredentialService, records service.RecordService, logger logrus.FieldLogger) *Shell {
	if logger == nil {
		logger = logrus.New()
	}
	fd, interactive := terminalFD(in)
	return &Shell{
		in:          bufio.NewReader(in),
		out:         out,
		interactive: interactive,
		fd:          fd,
		credentials: credentials,
		records:     records,
		logger:      logger.WithField("session", uuid.NewString()),
	}
}

// Run reads commands until exit, end of input or context cancellation.
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "notekeeper: type 'help' for commands")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(s.out, s.prompt())

		line, err := readLine(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return fmt.Errorf("read command: %w", err)
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if s.dispatch(ctx, fields[0], fields[1:]) {
			fmt.Fprintln(s.out, "Bye!")
			return nil
		}
	}
}

func (s *Shell) prompt() string {
	if s.user != nil {
		return fmt.Sprintf("nk:%s> ", s.user.Username)
	}
	return "nk> "
}

// dispatch runs one command and reports whether the shell should exit.
func (s *Shell) dispatch(ctx context.Context, cmd string, args []string) bool {
	s.logger.WithField("command", cmd).Debug("dispatch")

	var err error
	switch cmd {
	case "help":
		s.help()
	case "register":
		err = s.register(ctx)
	case "login":
		err = s.login(ctx)
	case "genpass":
		err = s.genpass(args)
	case "add":
		err = s.requireLogin(ctx, s.add)
	case "l", "list":
		err = s.requireLogin(ctx, func(ctx context.Context) error { return s.list(ctx, args) })
	case "show":
		err = s.requireLogin(ctx, func(ctx context.Context) error { return s.show(ctx, args) })
	case "edit":
		err = s.requireLogin(ctx, func(ctx context.Context) error { return s.edit(ctx, args) })
	case "delete":
		err = s.requireLogin(ctx, func(ctx context.Context) error { return s.remove(ctx, args) })
	case "categories":
		err = s.requireLogin(ctx, s.categories)
	case "stats":
		err = s.requireLogin(ctx, s.stats)
	case "history":
		err = s.requireLogin(ctx, func(ctx context.Context) error { return s.history(ctx, args) })
	case "whoami":
		err = s.requireLogin(ctx, s.whoami)
	case "logout":
		s.logout()
	case "exit", "quit":
		return true
	default:
		fmt.Fprintln(s.out, "Unknown command:", cmd)
	}

	if err != nil {
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return true
		}
		fmt.Fprintln(s.out, describe(err))
	}
	return false
}

func (s *Shell) help() {
	if s.user == nil {
		fmt.Fprintln(s.out, "Commands: register, login, genpass [length], help, exit")
		return
	}
	fmt.Fprintln(s.out, "Commands: add, list [category], show <id>, edit <id>, delete <id>, categories, stats, history [n], whoami, genpass [length], logout, help, exit")
}

var errLoginRequired = errors.New("please log in first")

func (s *Shell) requireLogin(ctx context.Context, fn func(context.Context) error) error {
	if s.user == nil {
		return errLoginRequired
	}
	return fn(ctx)
}

// describe turns service errors into messages for the user.
func describe(err error) string {
	var verr *credential.ValidationError
	switch {
	case errors.As(err, &verr):
		return fmt.Sprintf("Invalid %s: %s", verr.Field, verr.Reason)
	case errors.Is(err, service.ErrDuplicateUser):
		return "A user with this username or email already exists"
	case errors.Is(err, service.ErrNotFoundOrInactive):
		return "User not found or inactive"
	case errors.Is(err, service.ErrWrongPassword):
		return "Wrong password"
	case errors.Is(err, service.ErrRecordNotFound):
		return "Record not found"
	case errors.Is(err, service.ErrStoreUnavailable):
		return "Storage is unavailable, please try again"
	}
	return "Error: " + err.Error()
}
