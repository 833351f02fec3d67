package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/api/logger"
)

func TestDriverFor(t *testing.T) {
	tests := []struct {
		driver, url      string
		wantDriver, want string
		wantErr          bool
	}{
		{driver: "sqlite", url: "file:analytics.db", wantDriver: "sqlite", want: DialectSQLite},
		{driver: "", url: ":memory:", wantDriver: "sqlite", want: DialectSQLite},
		{driver: "sqlite", url: "libsql://db.turso.io?authToken=x", wantDriver: "libsql", want: DialectSQLite},
		{driver: "libsql", url: "https://db.turso.io", wantDriver: "libsql", want: DialectSQLite},
		{driver: "postgres", url: "postgres://localhost/analytics", wantDriver: "postgres", want: DialectPostgres},
		{driver: "mysql", url: "", wantErr: true},
	}

	for _, tt := range tests {
		driverName, dialect, err := driverFor(tt.driver, tt.url)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.wantDriver, driverName)
		assert.Equal(t, tt.want, dialect)
	}
}

func TestNewSQLDBInMemory(t *testing.T) {
	client, err := NewSQLDB(context.Background(), "sqlite", ":memory:", logger.NewNop())
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, DialectSQLite, client.Dialect)
	assert.NoError(t, client.DB.Ping())
}
