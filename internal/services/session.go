package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// AccountSessionKeyPrefix is the Redis key prefix for account->session mapping
	AccountSessionKeyPrefix = "account_session:"
)

// SessionManager stores session tokens in Redis. One active session per account.
type SessionManager struct {
	client *redis.Client
}

func NewSessionManager(client *redis.Client) *SessionManager {
	return &SessionManager{client: client}
}

// CreateSession creates a new session for an account and stores it in Redis.
// Any existing session for the account is invalidated first so the 7-day timer
// resets from the current login.
func (m *SessionManager) CreateSession(ctx context.Context, accountKey string) (string, error) {
	if err := m.InvalidateAccountSessions(ctx, accountKey); err != nil {
		return "", err
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	sessionToken := base64.URLEncoding.EncodeToString(tokenBytes)

	pipe := m.client.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+sessionToken, accountKey, SessionDuration)
	pipe.Set(ctx, AccountSessionKeyPrefix+accountKey, sessionToken, SessionDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}

	return sessionToken, nil
}

// ValidateSession checks if a session token is valid and returns the account key
func (m *SessionManager) ValidateSession(ctx context.Context, sessionToken string) (string, bool, error) {
	if sessionToken == "" {
		return "", false, nil
	}

	accountKey, err := m.client.Get(ctx, SessionKeyPrefix+sessionToken).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return accountKey, true, nil
}

// InvalidateSession removes a session from Redis
func (m *SessionManager) InvalidateSession(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}

	sessionKey := SessionKeyPrefix + sessionToken

	accountKey, err := m.client.Get(ctx, sessionKey).Result()
	if err == nil && accountKey != "" {
		m.client.Del(ctx, AccountSessionKeyPrefix+accountKey)
	}

	return m.client.Del(ctx, sessionKey).Err()
}

// InvalidateAccountSessions drops whatever session the account holds (used on lock).
func (m *SessionManager) InvalidateAccountSessions(ctx context.Context, accountKey string) error {
	accountSessionKey := AccountSessionKeyPrefix + accountKey

	sessionToken, err := m.client.Get(ctx, accountSessionKey).Result()
	if err == nil && sessionToken != "" {
		m.client.Del(ctx, SessionKeyPrefix+sessionToken)
	}

	return m.client.Del(ctx, accountSessionKey).Err()
}
