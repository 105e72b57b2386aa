package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"notekeeper/internal/credential"
	"notekeeper/internal/domain"
)

const (
	timeLayout     = "2006-01-02 15:04"
	defaultHistory = 10
)

var (
	errPasswordMismatch = errors.New("passwords do not match")
	errMissingLogin     = errors.New("username and password are required")
	errMissingContent   = errors.New("title and text are required")
)

func (s *Shell) register(ctx context.Context) error {
	username, err := s.ask("Username")
	if err != nil {
		return err
	}
	password, err := s.askSecret("Password (empty to generate one)")
	if err != nil {
		return err
	}

	if password == "" {
		password, err = s.acceptablePassword()
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Generated password:", password)
	} else {
		confirmation, err := s.askSecret("Confirm password")
		if err != nil {
			return err
		}
		if confirmation != password {
			return errPasswordMismatch
		}
	}

	email, err := s.ask("Email (optional)")
	if err != nil {
		return err
	}

	if err := s.credentials.Register(ctx, username, password, email); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Registration successful, you can log in now")
	return nil
}

// acceptablePassword draws generated passwords until one satisfies the
// registration rules; a random draw may lack a digit or an uppercase letter.
func (s *Shell) acceptablePassword() (string, error) {
	for i := 0; i < 32; i++ {
		password, err := s.credentials.GenerateStrongPassword(credential.DefaultPasswordLength)
		if err != nil {
			return "", err
		}
		if credential.ValidatePassword(password) == nil {
			return password, nil
		}
	}
	return "", fmt.Errorf("could not generate an acceptable password")
}

func (s *Shell) login(ctx context.Context) error {
	username, err := s.ask("Username")
	if err != nil {
		return err
	}
	password, err := s.askSecret("Password")
	if err != nil {
		return err
	}
	if username == "" || password == "" {
		return errMissingLogin
	}

	user, err := s.credentials.Login(ctx, username, password)
	if err != nil {
		return err
	}

	s.user = user
	s.logger = s.logger.WithField("user_id", user.ID)
	fmt.Fprintf(s.out, "Welcome, %s!\n", user.Username)
	return nil
}

func (s *Shell) logout() {
	if s.user == nil {
		fmt.Fprintln(s.out, "Not logged in")
		return
	}
	s.logger.WithFields(logrus.Fields{"username": s.user.Username}).Info("user logged out")
	s.user = nil
	fmt.Fprintln(s.out, "Logged out")
}

func (s *Shell) whoami(ctx context.Context) error {
	user, err := s.credentials.Profile(ctx, s.user.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "User: %s (#%d)\n", user.Username, user.ID)
	if user.Email != "" {
		fmt.Fprintln(s.out, "Email:", user.Email)
	}
	fmt.Fprintln(s.out, "Registered:", user.CreatedAt.Format(timeLayout))
	if user.LastLogin != nil {
		fmt.Fprintln(s.out, "Last login:", user.LastLogin.Format(timeLayout))
	}
	return nil
}

func (s *Shell) genpass(args []string) error {
	length := credential.DefaultPasswordLength
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("length must be a positive number")
		}
		length = n
	}
	password, err := s.credentials.GenerateStrongPassword(length)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, password)
	return nil
}

func (s *Shell) add(ctx context.Context) error {
	title, err := s.ask("Title")
	if err != nil {
		return err
	}
	category, err := s.ask(fmt.Sprintf("Category (default %s)", domain.DefaultCategory))
	if err != nil {
		return err
	}
	body, err := s.askMultiline("Text")
	if err != nil {
		return err
	}
	if title == "" || strings.TrimSpace(body) == "" {
		return errMissingContent
	}

	record, err := s.records.Save(ctx, s.user.ID, title, body, category)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved record #%d\n", record.ID)
	return nil
}

func (s *Shell) list(ctx context.Context, args []string) error {
	category := strings.Join(args, " ")
	records, err := s.records.List(ctx, s.user.ID, category)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(s.out, "No records")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(s.out, "#%d  %-20s  %-12s  %s\n", r.ID, r.Title, r.Category, r.CreatedAt.Format(timeLayout))
	}
	return nil
}

func (s *Shell) show(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	record, err := s.records.Get(ctx, s.user.ID, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "#%d %s [%s]\n", record.ID, record.Title, record.Category)
	fmt.Fprintf(s.out, "created %s, updated %s\n", record.CreatedAt.Format(timeLayout), record.UpdatedAt.Format(timeLayout))
	fmt.Fprintln(s.out, record.Body)
	return nil
}

func (s *Shell) edit(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	current, err := s.records.Get(ctx, s.user.ID, id)
	if err != nil {
		return err
	}

	title, err := s.askDefault("Title", current.Title)
	if err != nil {
		return err
	}
	category, err := s.askDefault("Category", current.Category)
	if err != nil {
		return err
	}
	body, err := s.askMultiline("Text (empty keeps the current text)")
	if err != nil {
		return err
	}
	if body == "" {
		body = current.Body
	}

	if _, err := s.records.Update(ctx, s.user.ID, id, title, body, category); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Updated record #%d\n", id)
	return nil
}

func (s *Shell) remove(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	ok, err := s.confirm(fmt.Sprintf("Delete record #%d?", id))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(s.out, "Cancelled")
		return nil
	}
	if err := s.records.Delete(ctx, s.user.ID, id); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Deleted record #%d\n", id)
	return nil
}

func (s *Shell) categories(ctx context.Context) error {
	categories, err := s.records.ListCategories(ctx, s.user.ID)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		fmt.Fprintln(s.out, "No categories")
		return nil
	}
	for _, c := range categories {
		fmt.Fprintln(s.out, c)
	}
	return nil
}

func (s *Shell) stats(ctx context.Context) error {
	st, err := s.records.Stats(ctx, s.user.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Records: %d\nCategories: %d\n", st.Records, st.Categories)
	return nil
}

func (s *Shell) history(ctx context.Context, args []string) error {
	limit := defaultHistory
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("count must be a positive number")
		}
		limit = n
	}

	attempts, err := s.credentials.RecentAttempts(ctx, s.user.Username, limit)
	if err != nil {
		return err
	}
	for _, a := range attempts {
		outcome := "failed"
		if a.Success {
			outcome = "ok"
		}
		fmt.Fprintf(s.out, "%s  %s\n", a.AttemptTime.Format(time.DateTime), outcome)
	}
	return nil
}

func parseID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("record id is required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", args[0])
	}
	return id, nil
}
