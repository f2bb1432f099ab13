package models

import (
	"time"
)

// DiaryEntry is a private free-text entry owned by one account
type DiaryEntry struct {
	ID         string    `bson:"_id" json:"id"`
	AccountKey string    `bson:"account_key" json:"-"`
	Text       string    `bson:"text" json:"text"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}

// StoredFile is a file record; the bytes live on the external file host
type StoredFile struct {
	ID         string    `bson:"_id" json:"id"`
	AccountKey string    `bson:"account_key" json:"-"`
	Name       string    `bson:"name" json:"name"`
	Size       int64     `bson:"size" json:"size"`
	URL        string    `bson:"url" json:"url"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
	Type       string    `bson:"type" json:"type"`
}
