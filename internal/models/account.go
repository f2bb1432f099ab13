package models

import (
	"time"
)

// Tier is the quota class of an account. It is fixed when the account is created.
type Tier string

const (
	TierBase    Tier = "base"
	TierPremium Tier = "premium"
	TierSpecial Tier = "special"
)

// Account is the stored record behind a 6-digit identifier.
type Account struct {
	Key       string    `bson:"_id" json:"-"`
	DisplayID string    `bson:"display_id" json:"user_id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`

	Username string `bson:"username,omitempty" json:"username,omitempty"`
	Email    string `bson:"email,omitempty" json:"email,omitempty"`

	UsageBytes int64 `bson:"usage_bytes" json:"usage_bytes"`
	Tier       Tier  `bson:"tier" json:"tier"`
	Premium    bool  `bson:"premium" json:"premium"`

	Locked         bool   `bson:"locked" json:"locked"`
	UnlockCodeHash string `bson:"unlock_code_hash,omitempty" json:"-"`
}

// AccountSnapshot is the read model pushed to clients.
type AccountSnapshot struct {
	Account    Account      `json:"account"`
	QuotaBytes int64        `json:"quota_bytes"`
	Diary      []DiaryEntry `json:"diary"`
	Files      []StoredFile `json:"files"`
}
