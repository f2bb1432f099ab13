package models

import (
	"time"
)

type SecurityEventType string

const (
	SecurityEventLock         SecurityEventType = "lock"
	SecurityEventUnlock       SecurityEventType = "unlock"
	SecurityEventUnlockFailed SecurityEventType = "unlock_failed"
)

// SecurityEvent is an audit row for the self-service lock flow.
type SecurityEvent struct {
	CreatedAt  time.Time         `json:"created_at"`
	AccountKey string            `json:"account_key"`
	Type       SecurityEventType `json:"type"`
	IPAddress  string            `json:"ip_address"`
}
