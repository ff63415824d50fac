package invites

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ByMatthewNeal/Arkline-sub011/config"

	"gorm.io/gorm"
)

// Alphabet for the random part of a code: 32 symbols, no 0/O/1/I so codes
// survive being read aloud or retyped from a screenshot.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 6

// maxGenerateAttempts bounds the retry loop on a duplicate code. With a
// 32^6 namespace a collision is effectively only reachable under a bug,
// so exhausting the bound fails loudly instead of looping.
const maxGenerateAttempts = 5

var (
	ErrCodeNotFound      = errors.New("invite code not found")
	ErrCodeExpired       = errors.New("invite code expired")
	ErrCodeRevoked       = errors.New("invite code revoked")
	ErrCodeAlreadyUsed   = errors.New("invite code already redeemed")
	ErrGenerateExhausted = errors.New("could not generate a unique invite code")
)

type GenerateParams struct {
	CreatedBy      *uint
	ExpiryDays     int
	RecipientEmail *string
	PaymentStatus  PaymentStatus
	Tier           Tier
	TrialDays      *int

	// Set when the code is minted for a completed checkout session.
	ExternalSessionID *string
}

// Generate mints a new single-use code. Uniqueness is guaranteed by the
// unique index on code: a duplicate insert surfaces as gorm.ErrDuplicatedKey
// and is retried with a fresh code, up to maxGenerateAttempts.
func Generate(db *gorm.DB, p GenerateParams) (*InviteCode, error) {
	if !p.PaymentStatus.Valid() {
		return nil, fmt.Errorf("invalid payment status %q", p.PaymentStatus)
	}
	if !p.Tier.Valid() {
		return nil, fmt.Errorf("invalid tier %q", p.Tier)
	}
	if p.ExpiryDays <= 0 {
		return nil, errors.New("expiry days must be positive")
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return nil, err
		}

		ic := &InviteCode{
			Code:              code,
			CreatedBy:         p.CreatedBy,
			RecipientEmail:    p.RecipientEmail,
			PaymentStatus:     p.PaymentStatus,
			Tier:              p.Tier,
			TrialDays:         p.TrialDays,
			ExternalSessionID: p.ExternalSessionID,
			ExpiresAt:         time.Now().AddDate(0, 0, p.ExpiryDays),
		}

		err = db.Create(ic).Error
		if err == nil {
			return ic, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Two unique indexes can reject the insert. A session conflict
			// means the invite already exists and no fresh code will ever
			// succeed; only a code collision is worth retrying.
			if p.ExternalSessionID != nil && sessionTaken(db, *p.ExternalSessionID) {
				return nil, fmt.Errorf("invite for session %s already exists: %w", *p.ExternalSessionID, err)
			}
			continue
		}
		return nil, fmt.Errorf("failed to store invite code: %w", err)
	}

	return nil, ErrGenerateExhausted
}

func sessionTaken(db *gorm.DB, sessionID string) bool {
	var count int64
	err := db.Model(&InviteCode{}).
		Where("external_session_id = ?", sessionID).
		Count(&count).Error
	return err == nil && count > 0
}

// EnsureForSession idempotently creates a paid invite tied to a checkout
// session. Redelivery of the same session resolves to the existing row.
func EnsureForSession(db *gorm.DB, sessionID string, email *string, trialDays *int) (*InviteCode, error) {
	var existing InviteCode
	err := db.Where("external_session_id = ?", sessionID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ic, err := Generate(db, GenerateParams{
		ExpiryDays:        30,
		RecipientEmail:    email,
		PaymentStatus:     PaymentPaid,
		Tier:              TierStandard,
		TrialDays:         trialDays,
		ExternalSessionID: &sessionID,
	})
	if err == nil {
		return ic, nil
	}

	// Lost the race against a concurrent redelivery: the session index
	// rejected our insert, so the row exists now.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = db.Where("external_session_id = ?", sessionID).First(&existing).Error
		if err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return nil, err
}

// Redeem marks the code as used by userID. The write is a single conditional
// update guarded on "used_by IS NULL": under concurrent attempts exactly one
// caller flips the row and everyone else observes zero rows affected.
func Redeem(db *gorm.DB, code string, userID uint) (*InviteCode, error) {
	now := time.Now()

	res := db.Model(&InviteCode{}).
		Where("code = ? AND used_by IS NULL AND is_revoked = ? AND expires_at > ?", code, false, now).
		Updates(map[string]interface{}{
			"used_by": userID,
			"used_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}

	var ic InviteCode
	if err := db.Where("code = ?", code).First(&ic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}

	if res.RowsAffected == 0 {
		if err := redeemRejection(&ic, now); err != nil {
			return nil, err
		}
		// The guard said no but the re-read looks redeemable, which can only
		// mean concurrent state changes between the two statements. Never
		// report success without a row actually flipped.
		return nil, ErrCodeExpired
	}
	return &ic, nil
}

// Validate is the read-only pre-redemption check. It never mutates.
func Validate(db *gorm.DB, code string) (*InviteCode, error) {
	var ic InviteCode
	if err := db.Where("code = ?", code).First(&ic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	if err := redeemRejection(&ic, time.Now()); err != nil {
		return nil, err
	}
	return &ic, nil
}

// Revoke flips the revoked flag. Already-redeemed codes stay redeemed; revoke
// only closes the door for codes nobody has used yet.
func Revoke(db *gorm.DB, code string) error {
	res := db.Model(&InviteCode{}).
		Where("code = ?", code).
		Update("is_revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCodeNotFound
	}
	return nil
}

// RedemptionLink builds the deep link the app opens to redeem a code.
func RedemptionLink(code string) string {
	scheme := config.INVITE_LINK_SCHEME
	if scheme == "" {
		scheme = "arkline"
	}
	return fmt.Sprintf("%s://invite?code=%s", scheme, code)
}

func redeemRejection(ic *InviteCode, now time.Time) error {
	switch {
	case ic.IsRevoked:
		return ErrCodeRevoked
	case ic.Redeemed():
		return ErrCodeAlreadyUsed
	case ic.Expired(now):
		return ErrCodeExpired
	}
	return nil
}

// randomCode is a var so the collision retry path can be exercised with a
// deterministic generator.
var randomCode = func() (string, error) {
	prefix := config.INVITE_CODE_PREFIX
	if prefix == "" {
		prefix = "ARK"
	}

	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return prefix + "-" + string(buf), nil
}
