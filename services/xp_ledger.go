package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/questfuel/api/models"
)

const xpSummaryTTL = 5 * time.Minute

// XPLedger appends XP awards and keeps users.xp equal to the ledger sum.
type XPLedger struct {
	db    *gorm.DB
	cache Cache
}

// NewXPLedger creates a ledger over db. cache may be nil.
func NewXPLedger(db *gorm.DB, cache Cache) *XPLedger {
	return &XPLedger{db: db, cache: orNoop(cache)}
}

// XPSummary is the user's XP counter, its level and the ledger sum it must match.
type XPSummary struct {
	LevelInfo
	LedgerXP int64 `json:"ledger_xp"`
	InSync   bool  `json:"in_sync"`
}

// XPDrift is a user whose counter disagrees with the ledger.
type XPDrift struct {
	UserID   string `json:"user_id"`
	XP       int64  `json:"xp"`
	LedgerXP int64  `json:"ledger_xp"`
}

// Award appends one log entry and applies user.xp += amount in a single transaction.
func (l *XPLedger) Award(ctx context.Context, userID string, amount int64, reason, sourceID string) (*models.XPLog, error) {
	var entry *models.XPLog
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = awardTx(tx, userID, amount, reason, sourceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.invalidate(ctx, userID)
	return entry, nil
}

// awardTx is Award for callers that already hold a transaction.
func awardTx(tx *gorm.DB, userID string, amount int64, reason, sourceID string) (*models.XPLog, error) {
	if amount == 0 {
		return nil, fmt.Errorf("%w: xp amount must be non-zero", ErrInvalidInput)
	}
	res := tx.Model(&models.User{}).Where("id = ?", userID).UpdateColumn("xp", gorm.Expr("xp + ?", amount))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	entry := &models.XPLog{
		UserID:   userID,
		Amount:   amount,
		Reason:   reason,
		SourceID: sourceID,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// Summary returns the user's XP, level and ledger sum.
func (l *XPLedger) Summary(ctx context.Context, userID string) (*XPSummary, error) {
	key := xpCachePrefix + userID
	var cached XPSummary
	if l.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	var user models.User
	if err := l.db.WithContext(ctx).Select("id", "xp").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		return nil, err
	}
	sum, err := l.ledgerSum(l.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}

	out := &XPSummary{
		LevelInfo: CalcLevel(user.XP),
		LedgerXP:  sum,
		InSync:    sum == user.XP,
	}
	l.cache.SetJSON(ctx, key, out, xpSummaryTTL)
	return out, nil
}

// History lists the user's ledger entries, newest first.
func (l *XPLedger) History(ctx context.Context, userID string, page, pageSize int) ([]models.XPLog, int64, error) {
	page, pageSize = clampPage(page, pageSize, 100)
	q := l.db.WithContext(ctx).Model(&models.XPLog{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []models.XPLog
	if err := q.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Reconcile finds users whose counter differs from their ledger sum. With repair set the
// counter is rewritten to the ledger sum, the ledger being the source of truth.
func (l *XPLedger) Reconcile(ctx context.Context, repair bool) ([]XPDrift, error) {
	var drifts []XPDrift
	err := l.db.WithContext(ctx).
		Table("users").
		Select("users.id AS user_id, users.xp AS xp, COALESCE(SUM(xp_logs.amount), 0) AS ledger_xp").
		Joins("LEFT JOIN xp_logs ON xp_logs.user_id = users.id").
		Where("users.deleted_at IS NULL").
		Group("users.id, users.xp").
		Having("users.xp <> COALESCE(SUM(xp_logs.amount), 0)").
		Scan(&drifts).Error
	if err != nil {
		return nil, err
	}
	if !repair {
		return drifts, nil
	}

	for _, d := range drifts {
		err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			sum, err := l.ledgerSum(tx, d.UserID)
			if err != nil {
				return err
			}
			return tx.Model(&models.User{}).Where("id = ?", d.UserID).UpdateColumn("xp", sum).Error
		})
		if err != nil {
			return drifts, fmt.Errorf("repair xp for user %s: %w", d.UserID, err)
		}
		l.invalidate(ctx, d.UserID)
	}
	return drifts, nil
}

func (l *XPLedger) ledgerSum(db *gorm.DB, userID string) (int64, error) {
	var sum int64
	err := db.Model(&models.XPLog{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ?", userID).
		Scan(&sum).Error
	return sum, err
}

func (l *XPLedger) invalidate(ctx context.Context, userID string) {
	l.cache.InvalidatePrefix(ctx, xpCachePrefix+userID)
}
