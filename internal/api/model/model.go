package model

import (
	"database/sql"
	"time"
)

type User struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

type Transcript struct {
	ID         string         `db:"id"`
	UserID     string         `db:"user_id"`
	FileName   string         `db:"file_name"`
	FileSize   int64          `db:"file_size"`
	FilePath   string         `db:"file_path"`
	Language   string         `db:"language"`
	Status     string         `db:"status"`
	Progress   int            `db:"progress"`
	Transcript sql.NullString `db:"transcript"`
	Duration   sql.NullInt64  `db:"duration"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}
