package services

import (
	"context"
	"encoding/base64"
	"math"
	"testing"

	"github.com/AnshRaj112/ura-storage-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeRaw(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestDecodeShareCode(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		wantErr   bool
		wantDiary int
		wantFiles int
	}{
		{name: "both collections", code: encodeRaw(`{"diary":[{"text":"a","timestamp":1}],"files":[]}`), wantDiary: 1},
		{name: "files only", code: encodeRaw(`{"files":[{"name":"f","size":3,"url":"https://x/f","timestamp":1,"type":"text/plain"}]}`), wantFiles: 1},
		{name: "null collection", code: encodeRaw(`{"diary":null}`)},
		{name: "surrounding whitespace", code: "  " + encodeRaw(`{"diary":[]}`) + "\n"},
		{name: "empty", code: "   ", wantErr: true},
		{name: "not base64", code: "%%%not-base64%%%", wantErr: true},
		{name: "not json", code: encodeRaw(`hello`), wantErr: true},
		{name: "json array", code: encodeRaw(`[1,2,3]`), wantErr: true},
		{name: "json null", code: encodeRaw(`null`), wantErr: true},
		{name: "neither key", code: encodeRaw(`{"notes":[]}`), wantErr: true},
		{name: "wrong element type", code: encodeRaw(`{"diary":"oops"}`), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := DecodeShareCode(tt.code)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedShareCode)
				assert.Equal(t, "The share code is malformed or invalid.", Describe(err, "").Message)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, payload.Diary)
			assert.NotNil(t, payload.Files)
			assert.Len(t, payload.Diary, tt.wantDiary)
			assert.Len(t, payload.Files, tt.wantFiles)
		})
	}
}

func TestExportShareCode_HelloExample(t *testing.T) {
	ctx := context.Background()
	svc, mem, _, _, _ := newStorageFixture()
	seedAccount(t, mem, models.Account{Key: "123456"})

	entry, err := svc.SaveDiaryEntry(ctx, "123456", "hello")
	require.NoError(t, err)

	code, err := svc.ExportShareCode(ctx, "123456", []string{entry.ID}, nil)
	require.NoError(t, err)

	payload, err := DecodeShareCode(code)
	require.NoError(t, err)
	assert.Equal(t, models.SharePayload{
		Diary: []models.SharedDiaryEntry{{Text: "hello", Timestamp: entry.Timestamp.UnixMilli()}},
		Files: []models.SharedFile{},
	}, *payload)
}

func TestExportShareCode_Errors(t *testing.T) {
	ctx := context.Background()
	svc, mem, _, _, _ := newStorageFixture()
	seedAccount(t, mem, models.Account{Key: "123456"})

	_, err := svc.ExportShareCode(ctx, "123456", nil, nil)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Please select at least one item to share.", Describe(err, "").Message)

	_, err = svc.ExportShareCode(ctx, "123456", []string{"missing"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShareRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, mem, _, _, _ := newStorageFixture()
	seedAccount(t, mem, models.Account{Key: "111111"})
	seedAccount(t, mem, models.Account{Key: "222222"})

	entry, err := svc.SaveDiaryEntry(ctx, "111111", "shared thought")
	require.NoError(t, err)
	file, err := svc.UploadFile(ctx, "111111", FileUpload{Name: "notes.txt", ContentType: "text/plain", Data: bytesOfSize(300)})
	require.NoError(t, err)

	code, err := svc.ExportShareCode(ctx, "111111", []string{entry.ID}, []string{file.ID})
	require.NoError(t, err)

	report, err := svc.ImportShareCode(ctx, "222222", code)
	require.NoError(t, err)
	assert.Equal(t, 1, report.DiaryImported)
	assert.Equal(t, 1, report.FilesImported)
	assert.Empty(t, report.Failures)

	diary, err := mem.ListDiaryEntries(ctx, "222222")
	require.NoError(t, err)
	require.Len(t, diary, 1)
	assert.Equal(t, "shared thought", diary[0].Text)

	files, err := mem.ListFiles(ctx, "222222")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, file.Name, files[0].Name)
	assert.Equal(t, file.Size, files[0].Size)
	assert.Equal(t, file.URL, files[0].URL)
	assert.NotEqual(t, file.ID, files[0].ID)

	assert.Equal(t, int64(300), usageOf(t, mem, "222222"))
}

func TestImportShareCode_PartialFailure(t *testing.T) {
	ctx := context.Background()
	svc, mem, _, _, _ := newStorageFixture()
	seedAccount(t, mem, models.Account{Key: "222222", UsageBytes: OneGiB - 100})

	code, err := EncodeShareCode(models.SharePayload{
		Diary: []models.SharedDiaryEntry{{Text: "kept"}, {Text: ""}},
		Files: []models.SharedFile{
			{Name: "small", Size: 50, URL: "https://x/small"},
			{Name: "huge", Size: 1000, URL: "https://x/huge"},
			{Name: "bad-url", Size: 1, URL: "not a url"},
		},
	})
	require.NoError(t, err)

	report, err := svc.ImportShareCode(ctx, "222222", code)
	require.NoError(t, err)
	assert.Equal(t, 1, report.DiaryImported)
	assert.Equal(t, 1, report.FilesImported)
	require.Len(t, report.Failures, 3)

	reasons := map[string]string{}
	for _, f := range report.Failures {
		reasons[f.Name] = f.Reason
	}
	assert.Equal(t, "Storage limit exceeded. Please upgrade to premium or delete files.", reasons["huge"])
	assert.Equal(t, "Please provide a valid http(s) URL.", reasons["bad-url"])

	assert.Equal(t, OneGiB-50, usageOf(t, mem, "222222"))
}

func TestImportShareCode_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, mem, _, _, _ := newStorageFixture()
	seedAccount(t, mem, models.Account{Key: "222222", Locked: true})

	_, err := svc.ImportShareCode(ctx, "222222", "garbage!")
	assert.ErrorIs(t, err, ErrMalformedShareCode)

	code, err := EncodeShareCode(models.SharePayload{Diary: []models.SharedDiaryEntry{{Text: "x"}}})
	require.NoError(t, err)
	_, err = svc.ImportShareCode(ctx, "222222", code)
	assert.ErrorIs(t, err, ErrAccountLocked)
}

// A share code cannot declare a size that wraps the usage counter.
func TestImportShareCode_HugeSizeIsRejected(t *testing.T) {
	ctx := context.Background()
	svc, mem, _, _, _ := newStorageFixture()
	seedAccount(t, mem, models.Account{Key: "123456", UsageBytes: 100})

	code := encodeRaw(`{"files":[{"name":"f","size":9223372036854775807,"url":"https://x/f","timestamp":1,"type":"text/plain"}]}`)

	report, err := svc.ImportShareCode(ctx, "123456", code)
	require.NoError(t, err)
	assert.Equal(t, 0, report.FilesImported)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "Storage limit exceeded. Please upgrade to premium or delete files.", report.Failures[0].Reason)
	assert.Equal(t, int64(100), usageOf(t, mem, "123456"))

	files, err := mem.ListFiles(ctx, "123456")
	require.NoError(t, err)
	assert.Empty(t, files)

	acc, err := mem.GetAccount(ctx, "123456")
	require.NoError(t, err)
	assert.ErrorIs(t, CheckQuota(acc, OneTiB), ErrQuotaExceeded)
	assert.ErrorIs(t, CheckQuota(acc, math.MaxInt64), ErrQuotaExceeded)
}
