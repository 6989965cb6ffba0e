package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var existsQuery = regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM waitlist WHERE email = $1)`)

func TestPostgresContains(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		want    bool
		wantErr bool
	}{
		{
			name: "member",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(existsQuery).
					WithArgs("user@example.com").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
			},
			want: true,
		},
		{
			name: "absent",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(existsQuery).
					WithArgs("user@example.com").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
			},
			want: false,
		},
		{
			name: "database down",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(existsQuery).
					WithArgs("user@example.com").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.setup(mock)
			got, err := NewPostgres(db, quietLogger()).Contains(context.Background(), "user@example.com")
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, got)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresAdd(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO waitlist (id, email, created_at)`)).
		WithArgs(sqlmock.AnyArg(), "new@example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry, err := NewPostgres(db, quietLogger()).Add(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", entry.Email)
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO waitlist (id, email, created_at)`)).
		WithArgs(sqlmock.AnyArg(), "old@example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, created_at FROM waitlist WHERE email = $1`)).
		WithArgs("old@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "created_at"}).
			AddRow("3f1c1f5e-0000-4000-8000-000000000001", "old@example.com", created))

	entry, err := NewPostgres(db, quietLogger()).Add(context.Background(), "old@example.com")
	require.NoError(t, err)
	assert.Equal(t, "3f1c1f5e-0000-4000-8000-000000000001", entry.ID)
	assert.True(t, entry.CreatedAt.Equal(created))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS waitlist")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewPostgres(db, quietLogger()).EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
