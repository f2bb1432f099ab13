package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AnshRaj112/ura-storage-backend/internal/models"
)

// MemoryStore keeps everything in maps. Used by tests and STORE=memory dev runs.
// The mutex only protects the maps; it does not make read-modify-write sequences
// in the services atomic.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	diary    map[string]map[string]models.DiaryEntry
	files    map[string]map[string]models.StoredFile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]models.Account),
		diary:    make(map[string]map[string]models.DiaryEntry),
		files:    make(map[string]map[string]models.StoredFile),
	}
}

func (m *MemoryStore) GetAccount(_ context.Context, key string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc, ok := m.accounts[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &acc, nil
}

func (m *MemoryStore) CreateAccount(_ context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[account.Key]; ok {
		return ErrAlreadyExists
	}
	m.accounts[account.Key] = *account
	return nil
}

func (m *MemoryStore) UpdateProfile(_ context.Context, key, username, email string) error {
	return m.updateAccount(key, func(acc *models.Account) {
		if username != "" {
			acc.Username = username
		}
		if email != "" {
			acc.Email = email
		}
	})
}

func (m *MemoryStore) SetUsage(_ context.Context, key string, usageBytes int64) error {
	return m.updateAccount(key, func(acc *models.Account) {
		acc.UsageBytes = usageBytes
	})
}

func (m *MemoryStore) SetLock(_ context.Context, key string, locked bool, codeHash string) error {
	return m.updateAccount(key, func(acc *models.Account) {
		acc.Locked = locked
		acc.UnlockCodeHash = codeHash
	})
}

func (m *MemoryStore) updateAccount(key string, fn func(*models.Account)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[key]
	if !ok {
		return ErrNotFound
	}
	fn(&acc)
	m.accounts[key] = acc
	return nil
}

func (m *MemoryStore) CreateDiaryEntry(_ context.Context, entry *models.DiaryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.diary[entry.AccountKey] == nil {
		m.diary[entry.AccountKey] = make(map[string]models.DiaryEntry)
	}
	m.diary[entry.AccountKey][entry.ID] = *entry
	return nil
}

func (m *MemoryStore) GetDiaryEntry(_ context.Context, key, id string) (*models.DiaryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.diary[key][id]
	if !ok {
		return nil, ErrNotFound
	}
	return &entry, nil
}

func (m *MemoryStore) UpdateDiaryEntry(_ context.Context, key, id, text string, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.diary[key][id]
	if !ok {
		return ErrNotFound
	}
	entry.Text = text
	entry.Timestamp = ts
	m.diary[key][id] = entry
	return nil
}

func (m *MemoryStore) DeleteDiaryEntry(_ context.Context, key, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.diary[key][id]; !ok {
		return ErrNotFound
	}
	delete(m.diary[key], id)
	return nil
}

func (m *MemoryStore) ListDiaryEntries(_ context.Context, key string) ([]models.DiaryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.DiaryEntry, 0, len(m.diary[key]))
	for _, e := range m.diary[key] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *MemoryStore) CreateFile(_ context.Context, file *models.StoredFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.files[file.AccountKey] == nil {
		m.files[file.AccountKey] = make(map[string]models.StoredFile)
	}
	m.files[file.AccountKey][file.ID] = *file
	return nil
}

func (m *MemoryStore) GetFile(_ context.Context, key, id string) (*models.StoredFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.files[key][id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (m *MemoryStore) DeleteFile(_ context.Context, key, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[key][id]; !ok {
		return ErrNotFound
	}
	delete(m.files[key], id)
	return nil
}

func (m *MemoryStore) ListFiles(_ context.Context, key string) ([]models.StoredFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.StoredFile, 0, len(m.files[key]))
	for _, f := range m.files[key] {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}
