package credit

import (
	"time"

	"github.com/google/uuid"
)

// BalanceResponse represents a credit balance in API responses.
type BalanceResponse struct {
	Bonus        int64 `json:"bonus"`
	Subscription int64 `json:"subscription"`
	Purchased    int64 `json:"purchased"`
	Total        int64 `json:"total"`
}

// GrantRequest represents an operator credit grant.
type GrantRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Bucket string    `json:"bucket" binding:"required"`
	Amount int64     `json:"amount" binding:"required,gt=0"`
	Reason string    `json:"reason"`
}

// TransactionResponse represents a ledger entry in API responses.
type TransactionResponse struct {
	ID           uuid.UUID       `json:"id"`
	Type         TransactionType `json:"type"`
	Amount       int64           `json:"amount"`
	Bonus        int64           `json:"bonus,omitempty"`
	Subscription int64           `json:"subscription,omitempty"`
	Purchased    int64           `json:"purchased,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TransactionListResponse represents a paginated ledger.
type TransactionListResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
	Total        int64                  `json:"total"`
	Page         int                    `json:"page"`
	PageSize     int                    `json:"page_size"`
	TotalPages   int                    `json:"total_pages"`
}

// ToResponse converts a Balance to BalanceResponse.
func (b *Balance) ToResponse() *BalanceResponse {
	return &BalanceResponse{
		Bonus:        b.Bonus,
		Subscription: b.Subscription,
		Purchased:    b.Purchased,
		Total:        b.Total(),
	}
}

// ToResponse converts a Transaction to TransactionResponse.
func (t *Transaction) ToResponse() *TransactionResponse {
	return &TransactionResponse{
		ID:           t.ID,
		Type:         t.Type,
		Amount:       t.Amount,
		Bonus:        t.Bonus,
		Subscription: t.Subscription,
		Purchased:    t.Purchased,
		Reason:       t.Reason,
		CreatedAt:    t.CreatedAt,
	}
}
