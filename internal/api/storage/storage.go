package storage

import (
	"github.com/Myo-Myint-Han/audio-transcript-pro/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

// Storage is the API's data access layer for users and transcripts
type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// NewStorageFromDB wraps an existing handle
func NewStorageFromDB(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}
