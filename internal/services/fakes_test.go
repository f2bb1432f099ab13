package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AnshRaj112/ura-storage-backend/internal/models"
	"github.com/AnshRaj112/ura-storage-backend/internal/store"
	"github.com/stretchr/testify/require"
)

// -------- test fakes --------

type fakeHost struct {
	err      error
	uploaded []FileUpload
}

func (h *fakeHost) Upload(_ context.Context, file FileUpload) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	h.uploaded = append(h.uploaded, file)
	return "https://files.example.com/" + file.Name, nil
}

type fakeFetcher struct {
	file *FileUpload
	err  error

	lastMax int64
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string, maxBytes int64) (*FileUpload, error) {
	f.lastMax = maxBytes
	if f.err != nil {
		return nil, f.err
	}
	if f.file.Size() > maxBytes {
		return nil, errFetchTooLarge
	}
	copied := *f.file
	return &copied, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

type fakeSessions struct {
	tokens      map[string]string
	invalidated []string
	err         error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: map[string]string{}}
}

func (s *fakeSessions) CreateSession(_ context.Context, key string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	token := "token-" + key
	s.tokens[token] = key
	return token, nil
}

func (s *fakeSessions) InvalidateSession(_ context.Context, token string) error {
	delete(s.tokens, token)
	return nil
}

func (s *fakeSessions) InvalidateAccountSessions(_ context.Context, key string) error {
	s.invalidated = append(s.invalidated, key)
	for token, owner := range s.tokens {
		if owner == key {
			delete(s.tokens, token)
		}
	}
	return nil
}

type fakeAudit struct {
	events []models.SecurityEvent
}

func (a *fakeAudit) Record(_ context.Context, event models.SecurityEvent) error {
	a.events = append(a.events, event)
	return nil
}

func (a *fakeAudit) CountRecent(_ context.Context, key string, eventType models.SecurityEventType, since time.Time) (int64, error) {
	var n int64
	for _, e := range a.events {
		if e.AccountKey == key && e.Type == eventType && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// failingStore reports every call as an upstream outage.
type failingStore struct {
	store.Store
}

var errStoreDown = errors.New("connection refused")

func (failingStore) GetAccount(context.Context, string) (*models.Account, error) {
	return nil, errStoreDown
}

// lateReadStore answers the first GetAccount with ErrNotFound, as if another request
// created the account between the read and the create.
type lateReadStore struct {
	*store.MemoryStore
	missed bool
}

func (s *lateReadStore) GetAccount(ctx context.Context, key string) (*models.Account, error) {
	if !s.missed {
		s.missed = true
		return nil, store.ErrNotFound
	}
	return s.MemoryStore.GetAccount(ctx, key)
}

// -------- helpers --------

func seedAccount(t *testing.T, s store.Store, acc models.Account) *models.Account {
	t.Helper()
	if acc.Tier == "" {
		acc.Tier = models.TierBase
	}
	if acc.DisplayID == "" {
		acc.DisplayID = acc.Key
	}
	require.NoError(t, s.CreateAccount(context.Background(), &acc))
	return &acc
}

func usageOf(t *testing.T, s store.Store, key string) int64 {
	t.Helper()
	acc, err := s.GetAccount(context.Background(), key)
	require.NoError(t, err)
	return acc.UsageBytes
}

func newStorageFixture() (*StorageService, *store.MemoryStore, *fakeHost, *fakeFetcher, *recordingPublisher) {
	mem := store.NewMemoryStore()
	host := &fakeHost{}
	fetcher := &fakeFetcher{}
	pub := &recordingPublisher{}
	return NewStorageService(mem, host, fetcher, pub), mem, host, fetcher, pub
}

func bytesOfSize(n int) []byte {
	return make([]byte, n)
}
