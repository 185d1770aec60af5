package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/migrations"
	"github.com/Myo-Myint-Han/audio-transcript-pro/shared/logger"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{
			name: "discrete fields",
			config: Config{
				Host:     "localhost",
				Port:     5432,
				User:     "postgres",
				Password: "secret",
				Database: "transcripts_db",
				SSLMode:  "require",
			},
			want: "host=localhost port=5432 user=postgres password=secret dbname=transcripts_db sslmode=require",
		},
		{
			name: "sslmode defaults to disable",
			config: Config{
				Host:     "db",
				Port:     5433,
				User:     "u",
				Password: "p",
				Database: "d",
			},
			want: "host=db port=5433 user=u password=p dbname=d sslmode=disable",
		},
		{
			name: "url wins",
			config: Config{
				URL:  "postgres://u:p@supabase:6543/postgres",
				Host: "ignored",
			},
			want: "postgres://u:p@supabase:6543/postgres",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.DSN())
		})
	}
}

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &Client{db: sqlx.NewDb(db, "sqlmock"), logger: logger.NewDiscard()}, mock
}

func TestClient_Migrate(t *testing.T) {
	client, _ := newMockClient(t)

	origUp, origVersion := gooseUpContext, gooseGetDBVersionContext
	t.Cleanup(func() {
		gooseUpContext, gooseGetDBVersionContext = origUp, origVersion
	})

	var applied []int64
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir " + dir)
		}
		// the embedded FS is the base FS while migrating
		collected, err := goose.CollectMigrations(dir, 0, goose.MaxVersion)
		if err != nil {
			return err
		}
		for _, m := range collected {
			applied = append(applied, m.Version)
		}
		return nil
	}
	gooseGetDBVersionContext = func(context.Context, *sql.DB) (int64, error) {
		return 2, nil
	}

	require.NoError(t, client.Migrate(context.Background(), migrations.FS))
	assert.Equal(t, []int64{1, 2}, applied)
}

func TestClient_MigrateError(t *testing.T) {
	client, _ := newMockClient(t)

	origUp := gooseUpContext
	t.Cleanup(func() { gooseUpContext = origUp })

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("syntax error at or near CREATE")
	}

	err := client.Migrate(context.Background(), migrations.FS)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to apply migrations")
}
