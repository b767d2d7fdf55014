package credit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalance_Drain(t *testing.T) {
	tests := []struct {
		name      string
		balance   Balance
		amount    int64
		wantOK    bool
		wantSplit Split
		wantAfter Balance
	}{
		{
			name:      "bonus covers everything",
			balance:   Balance{Bonus: 10, Subscription: 5, Purchased: 5},
			amount:    8,
			wantOK:    true,
			wantSplit: Split{Bonus: 8},
			wantAfter: Balance{Bonus: 2, Subscription: 5, Purchased: 5},
		},
		{
			name:      "spills into subscription",
			balance:   Balance{Bonus: 3, Subscription: 10, Purchased: 5},
			amount:    8,
			wantOK:    true,
			wantSplit: Split{Bonus: 3, Subscription: 5},
			wantAfter: Balance{Bonus: 0, Subscription: 5, Purchased: 5},
		},
		{
			name:      "drains all three buckets",
			balance:   Balance{Bonus: 2, Subscription: 3, Purchased: 10},
			amount:    9,
			wantOK:    true,
			wantSplit: Split{Bonus: 2, Subscription: 3, Purchased: 4},
			wantAfter: Balance{Purchased: 6},
		},
		{
			name:      "exact total empties the balance",
			balance:   Balance{Bonus: 2, Subscription: 3, Purchased: 4},
			amount:    9,
			wantOK:    true,
			wantSplit: Split{Bonus: 2, Subscription: 3, Purchased: 4},
			wantAfter: Balance{},
		},
		{
			name:      "insufficient leaves balance untouched",
			balance:   Balance{Bonus: 2, Subscription: 3},
			amount:    9,
			wantOK:    false,
			wantAfter: Balance{Bonus: 2, Subscription: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bal := tt.balance
			split, ok := bal.drain(tt.amount)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantSplit, split)
			}
			assert.Equal(t, tt.wantAfter.Bonus, bal.Bonus)
			assert.Equal(t, tt.wantAfter.Subscription, bal.Subscription)
			assert.Equal(t, tt.wantAfter.Purchased, bal.Purchased)
		})
	}
}

func TestBalance_Add(t *testing.T) {
	bal := Balance{}

	split := bal.add(BucketSubscription, 50)
	assert.Equal(t, Split{Subscription: 50}, split)
	assert.Equal(t, int64(50), bal.Subscription)
	assert.Equal(t, int64(50), bal.Total())

	bal.add(BucketBonus, 10)
	bal.add(BucketPurchased, 30)
	assert.Equal(t, int64(90), bal.Total())
}

func TestBucket_Valid(t *testing.T) {
	assert.True(t, BucketBonus.Valid())
	assert.True(t, BucketSubscription.Valid())
	assert.True(t, BucketPurchased.Valid())
	assert.False(t, Bucket("gold").Valid())
}
