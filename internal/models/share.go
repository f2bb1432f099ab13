package models

// SharePayload is the document carried inside a share code.
// Timestamps are Unix milliseconds.
type SharePayload struct {
	Diary []SharedDiaryEntry `json:"diary"`
	Files []SharedFile       `json:"files"`
}

type SharedDiaryEntry struct {
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type SharedFile struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	URL       string `json:"url"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
}

// ImportReport summarises a share-code import. Items that failed are listed with a reason;
// items imported before a failure are kept.
type ImportReport struct {
	DiaryImported int             `json:"diary_imported"`
	FilesImported int             `json:"files_imported"`
	Failures      []ImportFailure `json:"failures,omitempty"`
}

type ImportFailure struct {
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}
