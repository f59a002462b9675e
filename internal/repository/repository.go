package repository

import (
	"context"
	"database/sql"
	"time"

	"devsecops_api/internal/dbx"
	"devsecops_api/internal/models"
)

// Users is the credential store.
type Users interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id int64) (models.User, error)
	Insert(ctx context.Context, u models.User) (models.User, error)
	Update(ctx context.Context, u models.User) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Ping(ctx context.Context) error
}

// Events is the per-user activity trail.
type Events interface {
	Append(ctx context.Context, e models.Event) error
	List(ctx context.Context, userID int64, from, to time.Time, typ string) ([]models.Event, error)
}

type Repository struct {
	Users  Users
	Events Events
}

func NewRepository(db *sql.DB, dialect dbx.Dialect) *Repository {
	return &Repository{
		Users:  NewUserRepository(db, dialect),
		Events: NewEventRepository(db, dialect),
	}
}
