package services

import (
	"github.com/AnshRaj112/ura-storage-backend/internal/models"
)

const (
	OneMiB int64 = 1 << 20
	OneGiB int64 = 1 << 30
	OneTiB int64 = 1 << 40

	// InlineUploadLimit caps direct uploads; larger files go through the URL path.
	InlineUploadLimit = OneMiB
)

// EffectiveTier reads the quota class from the stored account.
func EffectiveTier(acc *models.Account) models.Tier {
	switch {
	case acc.Tier == models.TierSpecial:
		return models.TierSpecial
	case acc.Premium:
		return models.TierPremium
	default:
		return models.TierBase
	}
}

// QuotaFor returns the byte ceiling of the account.
func QuotaFor(acc *models.Account) int64 {
	switch EffectiveTier(acc) {
	case models.TierSpecial:
		return OneTiB
	case models.TierPremium:
		return 2 * OneGiB
	default:
		return OneGiB
	}
}

// CheckQuota gates a storage-consuming operation of the given byte cost.
// The check reads the usage snapshot in acc and is not atomic with the write that follows.
// It compares against the remaining room so a huge cost cannot overflow the sum.
func CheckQuota(acc *models.Account, cost int64) error {
	if acc.Locked {
		return errAccountLocked
	}
	if cost < 0 {
		return errInvalidSize
	}
	if cost > QuotaFor(acc)-acc.UsageBytes {
		return errQuotaExceeded
	}
	return nil
}

// RemainingBytes is how much the account may still store.
func RemainingBytes(acc *models.Account) int64 {
	remaining := QuotaFor(acc) - acc.UsageBytes
	if remaining < 0 {
		return 0
	}
	return remaining
}

// UsageAfterDelete clamps at zero so a drifted counter never goes negative.
func UsageAfterDelete(usage, freed int64) int64 {
	if usage-freed < 0 {
		return 0
	}
	return usage - freed
}

var (
	errAccountLocked = fail(ErrAccountLocked, "Account is locked.")
	errInvalidSize   = invalid("size", "Invalid file size.")
)
