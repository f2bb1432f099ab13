package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AnshRaj112/ura-storage-backend/internal/models"
	"github.com/AnshRaj112/ura-storage-backend/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Item kinds accepted by DeleteItem.
const (
	KindDiary = "diary"
	KindFiles = "files"
)

var (
	errMissingFields  = invalid("text", "Missing required fields.")
	errEmptyFile      = invalid("file", "Cannot upload an empty file.")
	errInlineTooLarge = invalid("file", "File is too large. Max 1MB for direct upload. Please use URL upload for larger files.")
	errQuotaExceeded  = fail(ErrQuotaExceeded, "Storage limit exceeded. Please upgrade to premium or delete files.")
	errItemNotFound   = fail(ErrNotFound, "Item not found.")
	errUserNotFound   = fail(ErrNotFound, "User not found.")
)

// DefaultURLUploadLimit caps a single URL upload regardless of remaining quota.
const DefaultURLUploadLimit = 512 * OneMiB

// StorageService owns diary entries and file records together with the usage counter.
type StorageService struct {
	store     store.Store
	host      FileHost
	fetcher   Fetcher
	publisher ChangePublisher

	urlUploadLimit int64

	now   func() time.Time
	newID func() string
}

func NewStorageService(s store.Store, host FileHost, fetcher Fetcher, publisher ChangePublisher) *StorageService {
	return &StorageService{
		store:     s,
		host:      host,
		fetcher:   fetcher,
		publisher: publisher,

		urlUploadLimit: DefaultURLUploadLimit,

		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
}

// WithURLUploadLimit sets the per-request ceiling for URL uploads. Values <= 0 keep the default.
func (s *StorageService) WithURLUploadLimit(limit int64) *StorageService {
	if limit > 0 {
		s.urlUploadLimit = limit
	}
	return s
}

func errURLUploadTooLarge(limit int64) error {
	return invalid("url", fmt.Sprintf("File is too large. Max %dMB for URL upload.", limit/OneMiB))
}

func (s *StorageService) loadAccount(ctx context.Context, accountKey string) (*models.Account, error) {
	acc, err := s.store.GetAccount(ctx, accountKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errUserNotFound
	}
	if err != nil {
		log.Error().Err(err).Str("account", accountKey).Msg("reading account")
		return nil, err
	}
	return acc, nil
}

// SaveDiaryEntry creates an entry stamped with the current time.
func (s *StorageService) SaveDiaryEntry(ctx context.Context, accountKey, text string) (*models.DiaryEntry, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errMissingFields
	}

	acc, err := s.loadAccount(ctx, accountKey)
	if err != nil {
		return nil, err
	}
	// Diary text is not counted against the quota.
	if err := CheckQuota(acc, 0); err != nil {
		return nil, err
	}

	entry := &models.DiaryEntry{
		ID:         s.newID(),
		AccountKey: accountKey,
		Text:       text,
		Timestamp:  s.now(),
	}
	if err := s.store.CreateDiaryEntry(ctx, entry); err != nil {
		log.Error().Err(err).Str("account", accountKey).Msg("saving diary entry")
		return nil, err
	}

	publishChange(ctx, s.publisher, accountKey)
	return entry, nil
}

// UpdateDiaryEntry replaces the text and timestamp of an existing entry.
func (s *StorageService) UpdateDiaryEntry(ctx context.Context, accountKey, entryID, text string) (*models.DiaryEntry, error) {
	if strings.TrimSpace(entryID) == "" || strings.TrimSpace(text) == "" {
		return nil, errMissingFields
	}

	acc, err := s.loadAccount(ctx, accountKey)
	if err != nil {
		return nil, err
	}
	if acc.Locked {
		return nil, errAccountLocked
	}

	ts := s.now()
	err = s.store.UpdateDiaryEntry(ctx, accountKey, entryID, text, ts)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errItemNotFound
	}
	if err != nil {
		log.Error().Err(err).Str("account", accountKey).Str("entry", entryID).Msg("updating diary entry")
		return nil, err
	}

	publishChange(ctx, s.publisher, accountKey)
	return &models.DiaryEntry{ID: entryID, AccountKey: accountKey, Text: text, Timestamp: ts}, nil
}

// UploadFile is the inline path: at most InlineUploadLimit bytes, hosted then recorded.
func (s *StorageService) UploadFile(ctx context.Context, accountKey string, upload FileUpload) (*models.StoredFile, error) {
	switch size := upload.Size(); {
	case size == 0:
		return nil, errEmptyFile
	case size > InlineUploadLimit:
		return nil, errInlineTooLarge
	}

	acc, err := s.loadAccount(ctx, accountKey)
	if err != nil {
		return nil, err
	}
	if err := CheckQuota(acc, upload.Size()); err != nil {
		return nil, err
	}

	return s.hostAndRecord(ctx, acc, upload)
}

// UploadFromURL fetches a remote file server-side and re-hosts it. Only the total
// quota bounds its size.
func (s *StorageService) UploadFromURL(ctx context.Context, accountKey, rawURL string) (*models.StoredFile, error) {
	if _, err := parseHTTPURL(rawURL); err != nil {
		return nil, err
	}

	acc, err := s.loadAccount(ctx, accountKey)
	if err != nil {
		return nil, err
	}
	if err := CheckQuota(acc, 0); err != nil {
		return nil, err
	}

	limit, capped := RemainingBytes(acc), false
	if s.urlUploadLimit > 0 && s.urlUploadLimit < limit {
		limit, capped = s.urlUploadLimit, true
	}

	upload, err := s.fetcher.Fetch(ctx, rawURL, limit)
	switch {
	case errors.Is(err, errFetchTooLarge) && capped:
		return nil, errURLUploadTooLarge(limit)
	case errors.Is(err, errFetchTooLarge):
		return nil, errQuotaExceeded
	case err != nil:
		log.Warn().Err(err).Str("account", accountKey).Str("url", rawURL).Msg("fetching remote file")
		return nil, err
	}
	defer func() {
		if err := upload.Close(); err != nil {
			log.Warn().Err(err).Msg("removing url upload spool file")
		}
	}()

	if upload.Size() == 0 {
		return nil, errEmptyFile
	}
	if err := CheckQuota(acc, upload.Size()); err != nil {
		return nil, err
	}

	return s.hostAndRecord(ctx, acc, *upload)
}

func (s *StorageService) hostAndRecord(ctx context.Context, acc *models.Account, upload FileUpload) (*models.StoredFile, error) {
	url, err := s.host.Upload(ctx, upload)
	if err != nil {
		log.Error().Err(err).Str("account", acc.Key).Str("file", upload.Name).Msg("uploading to file host")
		return nil, err
	}

	contentType := upload.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	return s.registerFile(ctx, acc, &models.StoredFile{
		Name: upload.Name,
		Size: upload.Size(),
		URL:  url,
		Type: contentType,
	})
}

// registerFile writes the record and then bumps usage by its size. The caller has
// already checked the quota against acc.
func (s *StorageService) registerFile(ctx context.Context, acc *models.Account, file *models.StoredFile) (*models.StoredFile, error) {
	file.ID = s.newID()
	file.AccountKey = acc.Key
	file.Timestamp = s.now()

	if err := s.store.CreateFile(ctx, file); err != nil {
		log.Error().Err(err).Str("account", acc.Key).Msg("recording file")
		return nil, err
	}

	usage := acc.UsageBytes + file.Size
	if err := s.store.SetUsage(ctx, acc.Key, usage); err != nil {
		log.Error().Err(err).Str("account", acc.Key).Msg("updating usage after upload")
		return nil, err
	}
	acc.UsageBytes = usage

	publishChange(ctx, s.publisher, acc.Key)
	return file, nil
}

// DeleteItem removes a diary entry or a file record. Deleting a file gives its size back
// before the record goes away.
func (s *StorageService) DeleteItem(ctx context.Context, accountKey, kind, itemID string) error {
	if strings.TrimSpace(itemID) == "" {
		return invalid("item_id", "Missing required fields.")
	}
	if kind != KindDiary && kind != KindFiles {
		return invalid("kind", "Item type must be diary or files.")
	}

	acc, err := s.loadAccount(ctx, accountKey)
	if err != nil {
		return err
	}
	if acc.Locked {
		return errAccountLocked
	}

	switch kind {
	case KindDiary:
		err = s.store.DeleteDiaryEntry(ctx, accountKey, itemID)
	case KindFiles:
		err = s.deleteFile(ctx, acc, itemID)
	}
	if errors.Is(err, store.ErrNotFound) {
		return errItemNotFound
	}
	if err != nil {
		log.Error().Err(err).Str("account", accountKey).Str("kind", kind).Str("item", itemID).Msg("deleting item")
		return err
	}

	publishChange(ctx, s.publisher, accountKey)
	return nil
}

func (s *StorageService) deleteFile(ctx context.Context, acc *models.Account, fileID string) error {
	file, err := s.store.GetFile(ctx, acc.Key, fileID)
	if err != nil {
		return err
	}

	usage := UsageAfterDelete(acc.UsageBytes, file.Size)
	if err := s.store.SetUsage(ctx, acc.Key, usage); err != nil {
		return err
	}
	acc.UsageBytes = usage

	return s.store.DeleteFile(ctx, acc.Key, fileID)
}
