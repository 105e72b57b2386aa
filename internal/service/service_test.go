package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"notekeeper/internal/credential"
	"notekeeper/internal/repository/sqlite"
)

type fixture struct {
	db          *sql.DB
	credentials CredentialService
	records     RecordService
	hook        *logtest.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(context.Background(), db, logger))

	return &fixture{
		db: db,
		credentials: NewCredentialService(
			sqlite.NewUserRepository(db),
			sqlite.NewLoginAttemptRepository(db),
			credential.NewHasher(credential.MinIterations),
			logger,
		),
		records: NewRecordService(sqlite.NewRecordRepository(db), logger),
		hook:    hook,
	}
}
