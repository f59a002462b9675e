package repository

import (
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"devsecops_api/internal/dbx"
	"devsecops_api/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newMockRepo(t *testing.T, dialect dbx.Dialect) (*UserRepository, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	repo := NewUserRepository(db, dialect)
	repo.now = func() time.Time { return fixedNow }
	cleanup := func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	}
	return repo, mock, cleanup
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "username", "password_hash", "created_at"})
}

func TestUserRepository_Insert(t *testing.T) {
	tests := []struct {
		name           string
		user           models.User
		mockExpect     func(sqlmock.Sqlmock)
		wantID         int64
		wantErr        error
		errContainsStr string
	}{
		{
			name: "success",
			user: models.User{Email: "alice@example.com", Username: "alice", PasswordHash: "h123"},
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectQuery(regexp.QuoteMeta(insertUserSQL)).
					WithArgs("alice@example.com", "alice", "h123", fixedNow).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
				m.ExpectCommit()
			},
			wantID: 42,
		},
		{
			name: "duplicate email (postgres)",
			user: models.User{Email: "bob@example.com", Username: "bob", PasswordHash: "h456"},
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectQuery(regexp.QuoteMeta(insertUserSQL)).
					WithArgs("bob@example.com", "bob", "h456", sqlmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: "23505"})
				m.ExpectRollback()
			},
			wantErr: ErrEmailExists,
		},
		{
			name: "duplicate email (sqlite message)",
			user: models.User{Email: "bob@example.com", Username: "bob", PasswordHash: "h456"},
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectQuery(regexp.QuoteMeta(insertUserSQL)).
					WithArgs("bob@example.com", "bob", "h456", sqlmock.AnyArg()).
					WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"))
				m.ExpectRollback()
			},
			wantErr: ErrEmailExists,
		},
		{
			name: "query error rolls back",
			user: models.User{Email: "carol@example.com", Username: "carol", PasswordHash: "h789"},
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectQuery(regexp.QuoteMeta(insertUserSQL)).
					WithArgs("carol@example.com", "carol", "h789", sqlmock.AnyArg()).
					WillReturnError(errors.New("db insert failed"))
				m.ExpectRollback()
			},
			errContainsStr: "insert user",
		},
		{
			name: "begin error",
			user: models.User{Email: "dave@example.com", Username: "dave", PasswordHash: "h"},
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin().WillReturnError(errors.New("no tx"))
			},
			errContainsStr: "begin transaction",
		},
	}

	for _, tt := range tests {
		tt := tt // capture
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := newMockRepo(t, dbx.SQLite)
			defer cleanup()

			tt.mockExpect(mock)

			u, err := repo.Insert(t.Context(), tt.user)

			if tt.wantErr != nil || tt.errContainsStr != "" {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if tt.errContainsStr != "" && !strings.Contains(err.Error(), tt.errContainsStr) {
					t.Fatalf("expected error to contain %q, got %q", tt.errContainsStr, err.Error())
				}
				if u.ID != 0 {
					t.Fatalf("expected zero user on error, got %+v", u)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if u.ID != tt.wantID {
				t.Fatalf("unexpected id: want %d, got %d", tt.wantID, u.ID)
			}
			if !u.CreatedAt.Equal(fixedNow) {
				t.Fatalf("expected created_at %v, got %v", fixedNow, u.CreatedAt)
			}
		})
	}
}

func TestUserRepository_FindByEmail(t *testing.T) {
	tests := []struct {
		name           string
		email          string
		mockExpect     func(sqlmock.Sqlmock)
		wantUser       models.User
		wantErr        error
		errContainsStr string
	}{
		{
			name:  "found",
			email: "alice@example.com",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(selectUserByEmailSQL)).
					WithArgs("alice@example.com").
					WillReturnRows(userRows().AddRow(7, "alice@example.com", "alice", "h123", fixedNow))
			},
			wantUser: models.User{ID: 7, Email: "alice@example.com", Username: "alice", PasswordHash: "h123", CreatedAt: fixedNow},
		},
		{
			name:  "not found (ErrNoRows)",
			email: "missing@example.com",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(selectUserByEmailSQL)).
					WithArgs("missing@example.com").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: ErrUserNotFound,
		},
		{
			name:  "query error",
			email: "bob@example.com",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(selectUserByEmailSQL)).
					WithArgs("bob@example.com").
					WillReturnError(errors.New("db query failed"))
			},
			errContainsStr: "select user",
		},
	}

	for _, tt := range tests {
		tt := tt // capture
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := newMockRepo(t, dbx.SQLite)
			defer cleanup()

			tt.mockExpect(mock)

			u, err := repo.FindByEmail(t.Context(), tt.email)

			if tt.wantErr != nil || tt.errContainsStr != "" {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if tt.errContainsStr != "" && !strings.Contains(err.Error(), tt.errContainsStr) {
					t.Fatalf("expected error to contain %q, got %q", tt.errContainsStr, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if u != tt.wantUser {
				t.Fatalf("unexpected user: want %+v, got %+v", tt.wantUser, u)
			}
		})
	}
}

func TestUserRepository_FindByID_PostgresPlaceholders(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t, dbx.Postgres)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, username, password_hash, created_at FROM users WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnRows(userRows().AddRow(3, "c@d.com", "c", "h", fixedNow))

	u, err := repo.FindByID(t.Context(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != 3 || u.Email != "c@d.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestUserRepository_Update(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo, mock, cleanup := newMockRepo(t, dbx.SQLite)
		defer cleanup()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(updateUserSQL)).
			WithArgs("newname", int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta(selectUserByIDSQL)).
			WithArgs(int64(7)).
			WillReturnRows(userRows().AddRow(7, "a@b.com", "newname", "h", fixedNow))
		mock.ExpectCommit()

		u, err := repo.Update(t.Context(), models.User{ID: 7, Username: "newname"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.Username != "newname" || u.Email != "a@b.com" {
			t.Fatalf("unexpected user: %+v", u)
		}
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, cleanup := newMockRepo(t, dbx.SQLite)
		defer cleanup()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(updateUserSQL)).
			WithArgs("x", int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		if _, err := repo.Update(t.Context(), models.User{ID: 99, Username: "x"}); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("exec error", func(t *testing.T) {
		repo, mock, cleanup := newMockRepo(t, dbx.SQLite)
		defer cleanup()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(updateUserSQL)).
			WithArgs("x", int64(1)).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		_, err := repo.Update(t.Context(), models.User{ID: 1, Username: "x"})
		if err == nil || !strings.Contains(err.Error(), "update user 1") {
			t.Fatalf("expected wrapped update error, got %v", err)
		}
	})
}

func TestUserRepository_List(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t, dbx.SQLite)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(listUsersSQL)).
		WillReturnRows(userRows().
			AddRow(1, "a@b.com", "a", "h1", fixedNow).
			AddRow(2, "c@d.com", "c", "h2", fixedNow))

	users, err := repo.List(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 || users[0].ID != 1 || users[1].ID != 2 {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestUserRepository_ListError(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t, dbx.SQLite)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(listUsersSQL)).WillReturnError(errors.New("boom"))

	if _, err := repo.List(t.Context()); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":               {nil, false},
		"pg unique":         {&pgconn.PgError{Code: "23505"}, true},
		"pg other":          {&pgconn.PgError{Code: "23503"}, false},
		"wrapped pg unique": {errors.Join(errors.New("ctx"), &pgconn.PgError{Code: "23505"}), true},
		"sqlite message":    {errors.New("UNIQUE constraint failed: users.email"), true},
		"unrelated":         {errors.New("connection refused"), false},
	}
	for name, tc := range cases {
		if got := isUniqueViolation(tc.err); got != tc.want {
			t.Fatalf("%s: want %v, got %v", name, tc.want, got)
		}
	}
}
