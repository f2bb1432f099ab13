package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMongoDatabaseName(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"mongodb://localhost:27017/storage", "storage"},
		{"mongodb+srv://u:p@cluster.example.net/diary?retryWrites=true", "diary"},
		{"mongodb://localhost:27017/", defaultMongoDatabase},
		{"mongodb://localhost:27017", defaultMongoDatabase},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MongoDatabaseName(tt.uri), tt.uri)
	}
}

func TestInitPostgresTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS account_security_events").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_account_security_events_lookup").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, InitPostgresTables(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitPostgresTables_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	assert.Error(t, InitPostgresTables(context.Background(), db))
}
