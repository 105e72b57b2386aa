package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notekeeper/internal/credential"
	"notekeeper/internal/domain"
	"notekeeper/internal/repository"
	"notekeeper/internal/repository/sqlite"
)

func countAttempts(t *testing.T, f *fixture, username string, success bool) int {
	t.Helper()
	var n int
	err := f.db.QueryRow(`SELECT COUNT(*) FROM login_attempts WHERE username = ? AND success = ?`, username, success).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.credentials.Register(ctx, "bob", "Passw0rd", "bob@x.com"))

	tests := []struct {
		name     string
		username string
		password string
		email    string
		wantErr  error
	}{
		{name: "duplicate username", username: "bob", password: "Passw0rd", email: "", wantErr: ErrDuplicateUser},
		{name: "duplicate email", username: "alice", password: "Passw0rd", email: "bob@x.com", wantErr: ErrDuplicateUser},
		{name: "short username", username: "ab", password: "Passw0rd", wantErr: credential.ErrValidation},
		{name: "bad username chars", username: "bo b", password: "Passw0rd", wantErr: credential.ErrValidation},
		{name: "weak password", username: "carol", password: "abcdef", wantErr: credential.ErrValidation},
		{name: "bad email", username: "carol", password: "Passw0rd", email: "carol@", wantErr: credential.ErrValidation},
		{name: "no email", username: "carol", password: "Abcdef1"},
		{name: "no email again", username: "dave", password: "Abcdef1"},
		{name: "username with underscore", username: "ab_1", password: "Abcdef1", email: "ab@y.org"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.credentials.Register(ctx, tt.username, tt.password, tt.email)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM users WHERE username = 'bob'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRegister_StoresHashNotPlaintext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.credentials.Register(ctx, " bob ", "Passw0rd", " bob@x.com "))

	var stored, email string
	require.NoError(t, f.db.QueryRow(`SELECT password, email FROM users WHERE username = 'bob'`).Scan(&stored, &email))
	assert.NotContains(t, stored, "Passw0rd")
	assert.Equal(t, "bob@x.com", email)
	assert.True(t, f.credentials.VerifyPassword(stored, "Passw0rd"))
}

func TestRegister_ConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.credentials.Register(ctx, "racer", "Passw0rd", "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrDuplicateUser):
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, dupes)
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.credentials.Register(ctx, "bob", "Passw0rd", "bob@x.com"))

	summary, err := f.credentials.Login(ctx, "bob", "Passw0rd")
	require.NoError(t, err)
	assert.Equal(t, "bob", summary.Username)
	assert.Positive(t, summary.ID)

	user, err := f.credentials.Profile(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@x.com", user.Email)
	assert.NotNil(t, user.LastLogin)
	assert.Empty(t, user.PasswordHash)

	assert.Equal(t, 1, countAttempts(t, f, "bob", true))
}

func TestProfile_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.credentials.Profile(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFoundOrInactive)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.credentials.Register(ctx, "bob", "Passw0rd", "bob@x.com"))

	_, err := f.credentials.Login(ctx, "bob", "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)

	user, err := sqlite.NewUserRepository(f.db).GetActiveByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, user.LastLogin, "failed login must not touch lastLogin")

	assert.Equal(t, 1, countAttempts(t, f, "bob", false))
	assert.Equal(t, 0, countAttempts(t, f, "bob", true))
}

func TestLogin_NotFoundOrInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.credentials.Login(ctx, "nouser", "anything")
	assert.ErrorIs(t, err, ErrNotFoundOrInactive)
	assert.Equal(t, 1, countAttempts(t, f, "nouser", false))

	require.NoError(t, f.credentials.Register(ctx, "bob", "Passw0rd", ""))
	_, err = f.db.Exec(`UPDATE users SET is_active = 0 WHERE username = 'bob'`)
	require.NoError(t, err)

	_, err = f.credentials.Login(ctx, "bob", "Passw0rd")
	assert.ErrorIs(t, err, ErrNotFoundOrInactive)
}

func TestLoginFrom_RecordsAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.credentials.Register(ctx, "bob", "Passw0rd", ""))

	_, err := f.credentials.LoginFrom(ctx, "bob", "Passw0rd", "192.168.1.10")
	require.NoError(t, err)
	_, err = f.credentials.Login(ctx, "bob", "nope")
	require.Error(t, err)

	attempts, err := f.credentials.RecentAttempts(ctx, "bob", 10)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.False(t, attempts[0].Success)
	assert.Empty(t, attempts[0].IPAddress)
	assert.True(t, attempts[1].Success)
	assert.Equal(t, "192.168.1.10", attempts[1].IPAddress)
}

type failingAttempts struct{}

func (failingAttempts) Append(context.Context, *domain.LoginAttempt) error {
	return errors.New("database is locked")
}

func (failingAttempts) ListByUsername(context.Context, string, int) ([]domain.LoginAttempt, error) {
	return nil, errors.New("database is locked")
}

func TestLogin_AuditFailureDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.credentials.Register(ctx, "bob", "Passw0rd", ""))

	logger, hook := logtest.NewNullLogger()
	svc := NewCredentialService(sqlite.NewUserRepository(f.db), failingAttempts{}, nil, logger)

	summary, err := svc.Login(ctx, "bob", "Passw0rd")
	require.NoError(t, err)
	assert.Equal(t, "bob", summary.Username)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "record login attempt" {
			warned = true
		}
	}
	assert.True(t, warned, "audit failure should be logged")

	_, err = svc.RecentAttempts(ctx, "bob", 5)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

type brokenUsers struct{}

var _ repository.UserRepository = brokenUsers{}

func (brokenUsers) Create(context.Context, *domain.User) (int64, error) {
	return 0, errors.New("disk full")
}
func (brokenUsers) GetActiveByUsername(context.Context, string) (*domain.User, error) {
	return nil, errors.New("disk full")
}
func (brokenUsers) GetByID(context.Context, int64) (*domain.User, error) {
	return nil, repository.ErrNotFound
}
func (brokenUsers) UpdateLastLogin(context.Context, int64, time.Time) error { return nil }

func TestStoreUnavailable(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	svc := NewCredentialService(brokenUsers{}, failingAttempts{}, nil, logger)
	ctx := context.Background()

	err := svc.Register(ctx, "bob", "Passw0rd", "")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = svc.Login(ctx, "bob", "Passw0rd")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	require.NotNil(t, hook.LastEntry())
}

func TestHashAndVerifyThroughService(t *testing.T) {
	f := newFixture(t)

	hash, err := f.credentials.HashPassword("Passw0rd", "abcd")
	require.NoError(t, err)
	again, err := f.credentials.HashPassword("Passw0rd", "abcd")
	require.NoError(t, err)
	assert.Equal(t, hash, again)
	assert.True(t, f.credentials.VerifyPassword(hash, "Passw0rd"))
	assert.False(t, f.credentials.VerifyPassword(hash, "Passw0rd1"))

	pw, err := f.credentials.GenerateStrongPassword(20)
	require.NoError(t, err)
	assert.Len(t, pw, 20)
}
