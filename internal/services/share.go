package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/AnshRaj112/ura-storage-backend/internal/models"
	"github.com/AnshRaj112/ura-storage-backend/internal/store"
	"github.com/rs/zerolog/log"
)

var (
	errMalformedShareCode = fail(ErrMalformedShareCode, "The share code is malformed or invalid.")
	errNothingSelected    = invalid("items", "Please select at least one item to share.")
)

// EncodeShareCode serializes the payload as JSON and base64-encodes it (standard alphabet).
func EncodeShareCode(payload models.SharePayload) (string, error) {
	if payload.Diary == nil {
		payload.Diary = []models.SharedDiaryEntry{}
	}
	if payload.Files == nil {
		payload.Files = []models.SharedFile{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeShareCode reverses EncodeShareCode. The code must decode to a JSON object carrying
// at least one of diary or files; a missing collection decodes as empty.
func DecodeShareCode(code string) (*models.SharePayload, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errMalformedShareCode
	}

	raw, err := base64.StdEncoding.DecodeString(code)
	if err != nil {
		return nil, errMalformedShareCode
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, errMalformedShareCode
	}
	diaryRaw, hasDiary := fields["diary"]
	filesRaw, hasFiles := fields["files"]
	if !hasDiary && !hasFiles {
		return nil, errMalformedShareCode
	}

	payload := &models.SharePayload{
		Diary: []models.SharedDiaryEntry{},
		Files: []models.SharedFile{},
	}
	if hasDiary {
		if err := json.Unmarshal(diaryRaw, &payload.Diary); err != nil {
			return nil, errMalformedShareCode
		}
	}
	if hasFiles {
		if err := json.Unmarshal(filesRaw, &payload.Files); err != nil {
			return nil, errMalformedShareCode
		}
	}
	// "null" leaves the slice nil
	if payload.Diary == nil {
		payload.Diary = []models.SharedDiaryEntry{}
	}
	if payload.Files == nil {
		payload.Files = []models.SharedFile{}
	}

	return payload, nil
}

// ExportShareCode builds a share code from the selected items of the caller's account.
func (s *StorageService) ExportShareCode(ctx context.Context, accountKey string, diaryIDs, fileIDs []string) (string, error) {
	if len(diaryIDs) == 0 && len(fileIDs) == 0 {
		return "", errNothingSelected
	}

	if _, err := s.loadAccount(ctx, accountKey); err != nil {
		return "", err
	}

	payload := models.SharePayload{
		Diary: make([]models.SharedDiaryEntry, 0, len(diaryIDs)),
		Files: make([]models.SharedFile, 0, len(fileIDs)),
	}

	for _, id := range diaryIDs {
		entry, err := s.store.GetDiaryEntry(ctx, accountKey, id)
		if err != nil {
			return "", s.exportLookupError(err, accountKey, id)
		}
		payload.Diary = append(payload.Diary, models.SharedDiaryEntry{
			Text:      entry.Text,
			Timestamp: entry.Timestamp.UnixMilli(),
		})
	}

	for _, id := range fileIDs {
		file, err := s.store.GetFile(ctx, accountKey, id)
		if err != nil {
			return "", s.exportLookupError(err, accountKey, id)
		}
		payload.Files = append(payload.Files, models.SharedFile{
			Name:      file.Name,
			Size:      file.Size,
			URL:       file.URL,
			Timestamp: file.Timestamp.UnixMilli(),
			Type:      file.Type,
		})
	}

	return EncodeShareCode(payload)
}

func (s *StorageService) exportLookupError(err error, accountKey, itemID string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fail(ErrNotFound, fmt.Sprintf("Item %s not found.", itemID))
	}
	log.Error().Err(err).Str("account", accountKey).Str("item", itemID).Msg("export: loading item")
	return err
}

// ImportShareCode replays a share code into the caller's account. Each item is created
// on its own; an item that fails is reported and earlier items are kept.
func (s *StorageService) ImportShareCode(ctx context.Context, accountKey, code string) (*models.ImportReport, error) {
	payload, err := DecodeShareCode(code)
	if err != nil {
		return nil, err
	}

	acc, err := s.loadAccount(ctx, accountKey)
	if err != nil {
		return nil, err
	}
	if acc.Locked {
		return nil, errAccountLocked
	}

	report := &models.ImportReport{}

	for _, entry := range payload.Diary {
		if _, err := s.SaveDiaryEntry(ctx, accountKey, entry.Text); err != nil {
			report.Failures = append(report.Failures, importFailure(KindDiary, excerpt(entry.Text), err))
			continue
		}
		report.DiaryImported++
	}

	for _, shared := range payload.Files {
		if err := s.importFile(ctx, acc, shared); err != nil {
			report.Failures = append(report.Failures, importFailure(KindFiles, shared.Name, err))
			continue
		}
		report.FilesImported++
	}

	log.Info().
		Str("account", accountKey).
		Int("diary", report.DiaryImported).
		Int("files", report.FilesImported).
		Int("failed", len(report.Failures)).
		Msg("share code imported")

	return report, nil
}

// importFile re-registers a record pointing at the original URL; the binary is not fetched.
func (s *StorageService) importFile(ctx context.Context, acc *models.Account, shared models.SharedFile) error {
	if strings.TrimSpace(shared.Name) == "" || shared.Size < 0 {
		return errMissingFields
	}
	if _, err := parseHTTPURL(shared.URL); err != nil {
		return err
	}
	if err := CheckQuota(acc, shared.Size); err != nil {
		return err
	}

	contentType := shared.Type
	if contentType == "" {
		contentType = defaultContentType
	}
	_, err := s.registerFile(ctx, acc, &models.StoredFile{
		Name: shared.Name,
		Size: shared.Size,
		URL:  shared.URL,
		Type: contentType,
	})
	return err
}

func importFailure(kind, name string, err error) models.ImportFailure {
	return models.ImportFailure{
		Kind:   kind,
		Name:   name,
		Reason: Describe(err, "").Message,
	}
}

func excerpt(text string) string {
	const limit = 40
	r := []rune(strings.TrimSpace(text))
	if len(r) <= limit {
		return string(r)
	}
	return string(r[:limit]) + "..."
}
