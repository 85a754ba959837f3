package dbtest

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/edgeflare/postemu/pkg/source"
	"github.com/stretchr/testify/require"
)

// Config returns the source config of the test database, or skips the test
// when TEST_DATABASE_HOST is not set.
//
//	TEST_DATABASE_DRIVER   mysql (default) or postgres
//	TEST_DATABASE_HOST     host name
//	TEST_DATABASE_USER     user
//	TEST_DATABASE_PASSWORD password
//	TEST_DATABASE_NAME     database name
func Config(t testing.TB) source.Config {
	host := os.Getenv("TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("TEST_DATABASE_HOST not set")
	}
	return source.Config{
		Driver:   os.Getenv("TEST_DATABASE_DRIVER"),
		Host:     host,
		User:     os.Getenv("TEST_DATABASE_USER"),
		Password: os.Getenv("TEST_DATABASE_PASSWORD"),
		Database: os.Getenv("TEST_DATABASE_NAME"),
	}.WithDefaults()
}

// Connect opens a handle to the test database and closes it on cleanup.
func Connect(ctx context.Context, t testing.TB) *sql.DB {
	db, err := source.Open(ctx, Config(t))
	require.NoError(t, err)

	t.Cleanup(func() {
		Close(t, db)
	})

	return db
}

// Close safely closes a database handle
func Close(t testing.TB, db *sql.DB) {
	require.NoError(t, db.Close())
}
