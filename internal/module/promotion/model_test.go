package promotion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromoCode_ValidateAt(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		promo   PromoCode
		wantErr string
	}{
		{
			name:  "active code with no window",
			promo: PromoCode{Active: true},
		},
		{
			name:  "inside validity window",
			promo: PromoCode{Active: true, ValidFrom: &past, ValidUntil: &future},
		},
		{
			name:    "inactive",
			promo:   PromoCode{Active: false},
			wantErr: "promo code is not active",
		},
		{
			name:    "not valid yet",
			promo:   PromoCode{Active: true, ValidFrom: &future},
			wantErr: "promo code is not valid yet",
		},
		{
			name:    "expired",
			promo:   PromoCode{Active: true, ValidUntil: &past},
			wantErr: "promo code has expired",
		},
		{
			name:    "fully redeemed",
			promo:   PromoCode{Active: true, MaxRedemptions: 10, RedeemedCount: 10},
			wantErr: "promo code has been fully redeemed",
		},
		{
			name:  "unlimited redemptions",
			promo: PromoCode{Active: true, MaxRedemptions: 0, RedeemedCount: 100000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.promo.ValidateAt(now)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestKind_Valid(t *testing.T) {
	assert.True(t, KindBonusCredits.Valid())
	assert.True(t, KindPercentDiscount.Valid())
	assert.False(t, Kind("cashback").Valid())
}
