package credit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/utils/pagination"
)

// Repository defines credit persistence operations.
type Repository interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error)
	Deduct(ctx context.Context, userID uuid.UUID, amount int64, reason string) (*Transaction, error)
	Grant(ctx context.Context, userID uuid.UUID, bucket Bucket, amount int64, typ TransactionType, reason string) (*Transaction, error)
	HasGrant(ctx context.Context, userID uuid.UUID, reason string) (bool, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, p *pagination.Pagination) ([]*Transaction, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new credit repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// GetBalance returns the user's balance, zero-valued when the user has no
// row yet.
func (r *repository) GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	var bal Balance
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&bal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Balance{UserID: userID}, nil
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return &bal, nil
}

// Deduct drains amount from the user's buckets inside one locked
// transaction and appends the ledger entry.
func (r *repository) Deduct(ctx context.Context, userID uuid.UUID, amount int64, reason string) (*Transaction, error) {
	var entry *Transaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bal, err := lockBalance(tx, userID)
		if err != nil {
			return err
		}

		split, ok := bal.drain(amount)
		if !ok {
			return apperrors.InsufficientCredits("")
		}
		if err := tx.Save(bal).Error; err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		entry = &Transaction{
			UserID:       userID,
			Type:         TransactionDeduct,
			Amount:       -amount,
			Bonus:        -split.Bonus,
			Subscription: -split.Subscription,
			Purchased:    -split.Purchased,
			Reason:       reason,
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Grant credits amount into one bucket inside one locked transaction and
// appends the ledger entry. Refunds reuse this path with their own type.
func (r *repository) Grant(ctx context.Context, userID uuid.UUID, bucket Bucket, amount int64, typ TransactionType, reason string) (*Transaction, error) {
	var entry *Transaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bal, err := lockBalance(tx, userID)
		if err != nil {
			return err
		}

		split := bal.add(bucket, amount)
		if err := tx.Save(bal).Error; err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		entry = &Transaction{
			UserID:       userID,
			Type:         typ,
			Amount:       amount,
			Bonus:        split.Bonus,
			Subscription: split.Subscription,
			Purchased:    split.Purchased,
			Reason:       reason,
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// HasGrant reports whether a grant with this reason was already recorded
// for the user.
func (r *repository) HasGrant(ctx context.Context, userID uuid.UUID, reason string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("user_id = ? AND type = ? AND reason = ?", userID, TransactionGrant, reason).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check grant: %w", err)
	}
	return count > 0, nil
}

// ListTransactions returns the user's ledger entries, newest first.
func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, p *pagination.Pagination) ([]*Transaction, int64, error) {
	var (
		entries []*Transaction
		total   int64
	)

	query := r.db.WithContext(ctx).Model(&Transaction{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	err := query.
		Order("created_at DESC").
		Offset(p.Offset()).
		Limit(p.Limit()).
		Find(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return entries, total, nil
}

// lockBalance loads the user's balance row FOR UPDATE, creating it first
// when missing so first-time users hold a lockable row.
func lockBalance(tx *gorm.DB, userID uuid.UUID) (*Balance, error) {
	var bal Balance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&bal).Error
	if err == nil {
		return &bal, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lock balance: %w", err)
	}

	bal = Balance{UserID: userID}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&bal).Error; err != nil {
		return nil, fmt.Errorf("create balance: %w", err)
	}

	// Re-read under lock; the insert may have lost a race.
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&bal).Error; err != nil {
		return nil, fmt.Errorf("lock balance: %w", err)
	}
	return &bal, nil
}
