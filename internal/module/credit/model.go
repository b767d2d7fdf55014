package credit

import (
	"time"

	"github.com/google/uuid"
)

// Bucket identifies the pool a credit grant lands in. Deduction drains
// buckets in priority order: bonus, then subscription, then purchased.
type Bucket string

const (
	BucketBonus        Bucket = "bonus"
	BucketSubscription Bucket = "subscription"
	BucketPurchased    Bucket = "purchased"
)

// Valid reports whether b is a known bucket.
func (b Bucket) Valid() bool {
	switch b {
	case BucketBonus, BucketSubscription, BucketPurchased:
		return true
	}
	return false
}

// Balance is a user's credit balance split by bucket.
type Balance struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID       uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	Bonus        int64     `json:"bonus" gorm:"not null;default:0"`
	Subscription int64     `json:"subscription" gorm:"not null;default:0"`
	Purchased    int64     `json:"purchased" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the table name for Balance.
func (Balance) TableName() string {
	return "credit_balances"
}

// Total returns the spendable sum across all buckets.
func (b *Balance) Total() int64 {
	return b.Bonus + b.Subscription + b.Purchased
}

// drain removes amount from the balance in bucket priority order and
// returns the per-bucket split that was taken. It reports false without
// mutating anything when the balance cannot cover the amount.
func (b *Balance) drain(amount int64) (Split, bool) {
	if b.Total() < amount {
		return Split{}, false
	}

	var split Split
	pools := []struct {
		pool *int64
		out  *int64
	}{
		{&b.Bonus, &split.Bonus},
		{&b.Subscription, &split.Subscription},
		{&b.Purchased, &split.Purchased},
	}
	remaining := amount
	for _, p := range pools {
		if remaining == 0 {
			break
		}
		n := *p.pool
		if n > remaining {
			n = remaining
		}
		*p.pool -= n
		*p.out += n
		remaining -= n
	}
	return split, true
}

// add credits amount into one bucket.
func (b *Balance) add(bucket Bucket, amount int64) Split {
	var split Split
	switch bucket {
	case BucketBonus:
		b.Bonus += amount
		split.Bonus = amount
	case BucketSubscription:
		b.Subscription += amount
		split.Subscription = amount
	case BucketPurchased:
		b.Purchased += amount
		split.Purchased = amount
	}
	return split
}

// Split is the per-bucket portion of one ledger entry.
type Split struct {
	Bonus        int64 `json:"bonus,omitempty"`
	Subscription int64 `json:"subscription,omitempty"`
	Purchased    int64 `json:"purchased,omitempty"`
}

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionGrant  TransactionType = "grant"
	TransactionDeduct TransactionType = "deduct"
	TransactionRefund TransactionType = "refund"
)

// Transaction is one append-only ledger entry. Amount is positive for
// grants and refunds, negative for deductions; the bucket columns carry
// the signed per-bucket split.
type Transaction struct {
	ID           uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID       uuid.UUID       `json:"user_id" gorm:"type:uuid;index;not null"`
	Type         TransactionType `json:"type" gorm:"type:varchar(16);index;not null"`
	Amount       int64           `json:"amount" gorm:"not null"`
	Bonus        int64           `json:"bonus" gorm:"not null;default:0"`
	Subscription int64           `json:"subscription" gorm:"not null;default:0"`
	Purchased    int64           `json:"purchased" gorm:"not null;default:0"`
	Reason       string          `json:"reason" gorm:"type:varchar(128)"`
	CreatedAt    time.Time       `json:"created_at" gorm:"index"`
}

// TableName returns the table name for Transaction.
func (Transaction) TableName() string {
	return "credit_transactions"
}
