package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/AnshRaj112/ura-storage-backend/internal/models"
	"github.com/AnshRaj112/ura-storage-backend/internal/store"
	"github.com/AnshRaj112/ura-storage-backend/pkg/utils"
	"github.com/rs/zerolog/log"
)

const (
	// unlockThrottleWindow and maxFailedUnlocks bound guessing of the 4-digit code.
	unlockThrottleWindow = 15 * time.Minute
	maxFailedUnlocks     = 10
)

// Sessions is the part of SessionManager the account service needs.
type Sessions interface {
	CreateSession(ctx context.Context, accountKey string) (string, error)
	InvalidateSession(ctx context.Context, sessionToken string) error
	InvalidateAccountSessions(ctx context.Context, accountKey string) error
}

// UnlockAttemptCounter reports recent failed unlock attempts for an account.
type UnlockAttemptCounter interface {
	CountRecent(ctx context.Context, accountKey string, eventType models.SecurityEventType, since time.Time) (int64, error)
}

// AccountService covers login, the lock/unlock flow and snapshots.
type AccountService struct {
	store     store.Store
	sessions  Sessions
	audit     AuditLog
	attempts  UnlockAttemptCounter
	publisher ChangePublisher
	encryptor *utils.Encryptor
	cache     *SnapshotCache

	now     func() time.Time
	newCode func() (string, error)
}

// AccountServiceConfig wires the service. Only Store and Sessions are required.
// A Cache must also be in the Publisher chain so changes invalidate it.
type AccountServiceConfig struct {
	Store     store.Store
	Sessions  Sessions
	Audit     AuditLog
	Attempts  UnlockAttemptCounter
	Publisher ChangePublisher
	Encryptor *utils.Encryptor
	Cache     *SnapshotCache
}

func NewAccountService(cfg AccountServiceConfig) *AccountService {
	audit := cfg.Audit
	if audit == nil {
		audit = NopAuditLog{}
	}
	return &AccountService{
		store:     cfg.Store,
		sessions:  cfg.Sessions,
		audit:     audit,
		attempts:  cfg.Attempts,
		publisher: cfg.Publisher,
		encryptor: cfg.Encryptor,
		cache:     cfg.Cache,
		now:       func() time.Time { return time.Now().UTC() },
		newCode:   GenerateUnlockCode,
	}
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token     string
	DisplayID string
	Created   bool
}

// Login signs into an existing, unlocked account.
func (s *AccountService) Login(ctx context.Context, rawID string) (*LoginResult, error) {
	id, err := utils.ParseAccountID(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	acc, err := s.store.GetAccount(ctx, id.Key())
	if errors.Is(err, store.ErrNotFound) {
		return nil, fail(ErrNotFound, "User not found. Please create an account.")
	}
	if err != nil {
		log.Error().Err(err).Str("account", id.Key()).Msg("login: reading account")
		return nil, err
	}
	if acc.Locked {
		return nil, errAccountLocked
	}

	return s.startSession(ctx, id, false)
}

// LoginOrCreate creates the account on first sight of an identifier, otherwise
// updates the display name and email when given.
func (s *AccountService) LoginOrCreate(ctx context.Context, rawID, username, email string) (*LoginResult, error) {
	id, err := utils.ParseAccountID(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	sealedEmail, err := s.encryptor.Encrypt(email)
	if err != nil {
		return nil, err
	}

	acc, err := s.store.GetAccount(ctx, id.Key())
	switch {
	case errors.Is(err, store.ErrNotFound):
		tier := models.TierBase
		if id.Special() {
			tier = models.TierSpecial
		}
		created := &models.Account{
			Key:        id.Key(),
			DisplayID:  id.String(),
			CreatedAt:  s.now(),
			Username:   username,
			Email:      sealedEmail,
			UsageBytes: 0,
			Tier:       tier,
		}
		err := s.store.CreateAccount(ctx, created)
		if err == nil {
			log.Info().Str("account", id.Key()).Str("tier", string(tier)).Msg("account created")
			return s.startSession(ctx, id, true)
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			log.Error().Err(err).Str("account", id.Key()).Msg("login: creating account")
			return nil, err
		}
		// A concurrent request created it first; continue as a login.
		if acc, err = s.store.GetAccount(ctx, id.Key()); err != nil {
			log.Error().Err(err).Str("account", id.Key()).Msg("login: reading account")
			return nil, err
		}

	case err != nil:
		log.Error().Err(err).Str("account", id.Key()).Msg("login: reading account")
		return nil, err
	}

	if acc.Locked {
		return nil, errAccountLocked
	}

	if username != "" || sealedEmail != "" {
		if err := s.store.UpdateProfile(ctx, id.Key(), username, sealedEmail); err != nil {
			log.Error().Err(err).Str("account", id.Key()).Msg("login: updating profile")
			return nil, err
		}
		publishChange(ctx, s.publisher, id.Key())
	}

	return s.startSession(ctx, id, false)
}

func (s *AccountService) startSession(ctx context.Context, id utils.AccountID, created bool) (*LoginResult, error) {
	token, err := s.sessions.CreateSession(ctx, id.Key())
	if err != nil {
		log.Error().Err(err).Str("account", id.Key()).Msg("login: creating session")
		return nil, err
	}
	return &LoginResult{Token: token, DisplayID: id.String(), Created: created}, nil
}

// Logout drops the session token and signals live streams so they re-check their session.
func (s *AccountService) Logout(ctx context.Context, accountKey, sessionToken string) error {
	if err := s.sessions.InvalidateSession(ctx, sessionToken); err != nil {
		return err
	}
	publishChange(ctx, s.publisher, accountKey)
	return nil
}

// Lock sets the lock flag and returns the one-time unlock code. Only the hash is stored.
func (s *AccountService) Lock(ctx context.Context, accountKey, ipAddress string) (string, error) {
	if _, err := s.store.GetAccount(ctx, accountKey); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fail(ErrNotFound, "User not found.")
		}
		return "", err
	}

	code, err := s.newCode()
	if err != nil {
		return "", err
	}
	hashed, err := utils.HashSecret(code)
	if err != nil {
		return "", err
	}

	if err := s.store.SetLock(ctx, accountKey, true, hashed); err != nil {
		log.Error().Err(err).Str("account", accountKey).Msg("lock: writing lock flag")
		return "", err
	}

	if err := s.sessions.InvalidateAccountSessions(ctx, accountKey); err != nil {
		log.Warn().Err(err).Str("account", accountKey).Msg("lock: invalidating sessions")
	}

	recordEvent(ctx, s.audit, models.SecurityEvent{
		CreatedAt:  s.now(),
		AccountKey: accountKey,
		Type:       models.SecurityEventLock,
		IPAddress:  ipAddress,
	})
	publishChange(ctx, s.publisher, accountKey)

	log.Info().Str("account", accountKey).Msg("account locked")
	return code, nil
}

// Unlock clears the lock when code matches the stored one, and erases the code.
func (s *AccountService) Unlock(ctx context.Context, rawID, code, ipAddress string) error {
	code = strings.TrimSpace(code)
	if strings.TrimSpace(rawID) == "" || code == "" {
		return invalid("unlock_code", "User ID and unlock code are required.")
	}

	id, err := utils.ParseAccountID(rawID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	acc, err := s.store.GetAccount(ctx, id.Key())
	if errors.Is(err, store.ErrNotFound) {
		return fail(ErrNotFound, "User not found.")
	}
	if err != nil {
		return err
	}

	if err := s.checkUnlockThrottle(ctx, id.Key()); err != nil {
		return err
	}

	if !acc.Locked || acc.UnlockCodeHash == "" || !s.codeMatches(code, acc.UnlockCodeHash) {
		recordEvent(ctx, s.audit, models.SecurityEvent{
			CreatedAt:  s.now(),
			AccountKey: id.Key(),
			Type:       models.SecurityEventUnlockFailed,
			IPAddress:  ipAddress,
		})
		return errInvalidUnlockCode
	}

	if err := s.store.SetLock(ctx, id.Key(), false, ""); err != nil {
		log.Error().Err(err).Str("account", id.Key()).Msg("unlock: clearing lock flag")
		return err
	}

	recordEvent(ctx, s.audit, models.SecurityEvent{
		CreatedAt:  s.now(),
		AccountKey: id.Key(),
		Type:       models.SecurityEventUnlock,
		IPAddress:  ipAddress,
	})
	publishChange(ctx, s.publisher, id.Key())

	log.Info().Str("account", id.Key()).Msg("account unlocked")
	return nil
}

var errInvalidUnlockCode = fail(ErrInvalidUnlockCode, "Invalid unlock code.")

func (s *AccountService) codeMatches(code, hashed string) bool {
	ok, err := utils.VerifySecret(code, hashed)
	if err != nil {
		log.Warn().Err(err).Msg("unlock: stored code hash unreadable")
		return false
	}
	return ok
}

func (s *AccountService) checkUnlockThrottle(ctx context.Context, accountKey string) error {
	if s.attempts == nil {
		return nil
	}
	failures, err := s.attempts.CountRecent(ctx, accountKey, models.SecurityEventUnlockFailed, s.now().Add(-unlockThrottleWindow))
	if err != nil {
		log.Warn().Err(err).Str("account", accountKey).Msg("unlock: counting failed attempts")
		return nil
	}
	if failures >= maxFailedUnlocks {
		return fail(ErrInvalidUnlockCode, "Too many unlock attempts. Please try again later.")
	}
	return nil
}

// Snapshot returns the account with its diary entries and files, newest first.
func (s *AccountService) Snapshot(ctx context.Context, accountKey string) (*models.AccountSnapshot, error) {
	if s.cache == nil {
		snap, err := s.loadSnapshot(ctx, accountKey)
		if err != nil {
			return nil, err
		}
		return s.reveal(snap), nil
	}

	if snap, ok := s.cache.Get(ctx, accountKey); ok {
		return s.reveal(snap), nil
	}
	gen := s.cache.Generation(ctx, accountKey)
	snap, err := s.loadSnapshot(ctx, accountKey)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, accountKey, gen, snap)
	return s.reveal(snap), nil
}

// loadSnapshot reads the snapshot from the store with the email still sealed.
func (s *AccountService) loadSnapshot(ctx context.Context, accountKey string) (*models.AccountSnapshot, error) {
	acc, err := s.store.GetAccount(ctx, accountKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fail(ErrNotFound, "User not found.")
	}
	if err != nil {
		return nil, err
	}

	diary, err := s.store.ListDiaryEntries(ctx, accountKey)
	if err != nil {
		return nil, err
	}
	files, err := s.store.ListFiles(ctx, accountKey)
	if err != nil {
		return nil, err
	}

	return &models.AccountSnapshot{
		Account:    *acc,
		QuotaBytes: QuotaFor(acc),
		Diary:      diary,
		Files:      files,
	}, nil
}

// reveal decrypts the email in place. An unreadable email is dropped, not fatal.
func (s *AccountService) reveal(snap *models.AccountSnapshot) *models.AccountSnapshot {
	email, err := s.encryptor.Decrypt(snap.Account.Email)
	if err != nil {
		log.Warn().Err(err).Str("account", snap.Account.Key).Msg("snapshot: decrypting email")
		email = ""
	}
	snap.Account.Email = email
	return snap
}

// GenerateUnlockCode returns 4 digits drawn uniformly from 0000-9999.
func GenerateUnlockCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
