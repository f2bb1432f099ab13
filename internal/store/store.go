package store

import (
	"context"
	"errors"
	"time"

	"github.com/AnshRaj112/ura-storage-backend/internal/models"
)

var (
	// ErrNotFound is returned when an account or item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating an account whose key is taken.
	ErrAlreadyExists = errors.New("already exists")
)

// Store is the remote database holding accounts, diary entries and file records.
// Every call is a single-key read or write; nothing here spans more than one document.
type Store interface {
	GetAccount(ctx context.Context, key string) (*models.Account, error)
	CreateAccount(ctx context.Context, account *models.Account) error
	// UpdateProfile sets username and email; empty values are left untouched.
	UpdateProfile(ctx context.Context, key, username, email string) error
	SetUsage(ctx context.Context, key string, usageBytes int64) error
	SetLock(ctx context.Context, key string, locked bool, codeHash string) error

	CreateDiaryEntry(ctx context.Context, entry *models.DiaryEntry) error
	GetDiaryEntry(ctx context.Context, key, id string) (*models.DiaryEntry, error)
	UpdateDiaryEntry(ctx context.Context, key, id, text string, ts time.Time) error
	DeleteDiaryEntry(ctx context.Context, key, id string) error
	// ListDiaryEntries returns entries newest first.
	ListDiaryEntries(ctx context.Context, key string) ([]models.DiaryEntry, error)

	CreateFile(ctx context.Context, file *models.StoredFile) error
	GetFile(ctx context.Context, key, id string) (*models.StoredFile, error)
	DeleteFile(ctx context.Context, key, id string) error
	// ListFiles returns file records newest first.
	ListFiles(ctx context.Context, key string) ([]models.StoredFile, error)
}
