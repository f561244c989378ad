package database

import (
	"errors"
	"io"
	"io/fs"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationSourceHasUpAndDownSteps(t *testing.T) {
	src, err := migrationSource()
	require.NoError(t, err)
	defer src.Close()

	var versions []uint
	version, err := src.First()
	for err == nil {
		versions = append(versions, version)

		up, _, upErr := src.ReadUp(version)
		require.NoError(t, upErr, "up step %d", version)
		body, readErr := io.ReadAll(up)
		up.Close()
		require.NoError(t, readErr)
		assert.NotEmpty(t, body, "up step %d", version)

		down, _, downErr := src.ReadDown(version)
		require.NoError(t, downErr, "down step %d", version)
		down.Close()

		version, err = src.Next(version)
	}
	assert.True(t, errors.Is(err, fs.ErrNotExist), "unexpected error: %v", err)
	assert.Equal(t, []uint{1, 2}, versions)
}

func TestMigrateReportsDriverFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT DATABASE\(\)`).WillReturnError(errors.New("connection reset"))

	err = Migrate(db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create migration driver")
}
