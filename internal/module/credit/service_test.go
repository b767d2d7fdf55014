package credit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidgo/server/internal/infra/events"
	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/utils/pagination"
)

type fakeRepo struct {
	balances  map[uuid.UUID]*Balance
	entries   []*Transaction
	deductErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{balances: make(map[uuid.UUID]*Balance)}
}

func (f *fakeRepo) balance(userID uuid.UUID) *Balance {
	bal, ok := f.balances[userID]
	if !ok {
		bal = &Balance{ID: uuid.New(), UserID: userID}
		f.balances[userID] = bal
	}
	return bal
}

func (f *fakeRepo) GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	if bal, ok := f.balances[userID]; ok {
		cp := *bal
		return &cp, nil
	}
	return &Balance{UserID: userID}, nil
}

func (f *fakeRepo) Deduct(ctx context.Context, userID uuid.UUID, amount int64, reason string) (*Transaction, error) {
	if f.deductErr != nil {
		return nil, f.deductErr
	}
	bal := f.balance(userID)
	split, ok := bal.drain(amount)
	if !ok {
		return nil, apperrors.InsufficientCredits("")
	}
	entry := &Transaction{
		ID:           uuid.New(),
		UserID:       userID,
		Type:         TransactionDeduct,
		Amount:       -amount,
		Bonus:        -split.Bonus,
		Subscription: -split.Subscription,
		Purchased:    -split.Purchased,
		Reason:       reason,
	}
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeRepo) Grant(ctx context.Context, userID uuid.UUID, bucket Bucket, amount int64, typ TransactionType, reason string) (*Transaction, error) {
	bal := f.balance(userID)
	split := bal.add(bucket, amount)
	entry := &Transaction{
		ID:           uuid.New(),
		UserID:       userID,
		Type:         typ,
		Amount:       amount,
		Bonus:        split.Bonus,
		Subscription: split.Subscription,
		Purchased:    split.Purchased,
		Reason:       reason,
	}
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeRepo) HasGrant(ctx context.Context, userID uuid.UUID, reason string) (bool, error) {
	for _, e := range f.entries {
		if e.UserID == userID && e.Type == TransactionGrant && e.Reason == reason {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ListTransactions(ctx context.Context, userID uuid.UUID, p *pagination.Pagination) ([]*Transaction, int64, error) {
	var out []*Transaction
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].UserID == userID {
			out = append(out, f.entries[i])
		}
	}
	return out, int64(len(out)), nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	return NewService(repo, nil, nil), repo
}

func TestService_DeductDrainsBucketsInOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, svc.Grant(ctx, userID, BucketBonus, 3, "welcome"))
	require.NoError(t, svc.Grant(ctx, userID, BucketSubscription, 10, "plan"))
	require.NoError(t, svc.Grant(ctx, userID, BucketPurchased, 20, "order:VG1"))

	require.NoError(t, svc.Deduct(ctx, userID, 8, "generation:t2i"))

	bal, err := svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.Bonus)
	assert.Equal(t, int64(5), bal.Subscription)
	assert.Equal(t, int64(20), bal.Purchased)
	assert.Equal(t, int64(25), bal.Total())
}

func TestService_Deduct_Insufficient(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, svc.Grant(ctx, userID, BucketBonus, 3, "welcome"))

	err := svc.Deduct(ctx, userID, 10, "generation:t2v")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientCredits)

	// Nothing was drained.
	bal, err := svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), bal.Total())
}

func TestService_Deduct_RejectsNonPositiveAmount(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Deduct(context.Background(), uuid.New(), 0, "noop")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	err = svc.Deduct(context.Background(), uuid.New(), -5, "noop")
	assert.Error(t, err)
}

func TestService_RefundLandsInBonus(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, svc.Grant(ctx, userID, BucketPurchased, 10, "order:VG1"))
	require.NoError(t, svc.Deduct(ctx, userID, 10, "generation:t2v"))
	require.NoError(t, svc.Refund(ctx, userID, 10, "generation_failed:t2v"))

	bal, err := svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), bal.Bonus)
	assert.Equal(t, int64(0), bal.Purchased)

	last := repo.entries[len(repo.entries)-1]
	assert.Equal(t, TransactionRefund, last.Type)
	assert.Equal(t, int64(10), last.Amount)
}

func TestService_Grant_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Grant(ctx, uuid.New(), Bucket("gold"), 10, "promo")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	err = svc.Grant(ctx, uuid.New(), BucketBonus, 0, "promo")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestService_GrantPackCredits_Idempotent(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, svc.GrantPackCredits(ctx, userID, "VG20260825120000", 100, 20))
	require.NoError(t, svc.GrantPackCredits(ctx, userID, "VG20260825120000", 100, 20))

	bal, err := svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), bal.Purchased)
	assert.Equal(t, int64(20), bal.Bonus)
	assert.Len(t, repo.entries, 2)
}

func TestService_Transactions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, svc.Grant(ctx, userID, BucketBonus, 5, "welcome"))
	require.NoError(t, svc.Deduct(ctx, userID, 2, "generation:t2i"))

	entries, total, err := svc.Transactions(ctx, userID, pagination.New())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 2)
	// Newest first.
	assert.Equal(t, TransactionDeduct, entries[0].Type)
	assert.Equal(t, TransactionGrant, entries[1].Type)
}

func TestPaymentHandler(t *testing.T) {
	svc, repo := newTestService(t)
	handler := NewPaymentHandler(svc, nil)
	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()

	assert.Equal(t, []string{events.PaymentSucceededType}, handler.Handles())

	event := events.NewPaymentSucceededEvent(orderID, userID, "VG20260825093000", 999, "usd", "stripe", "pi_123", 500, 50)
	require.NoError(t, handler.Handle(ctx, event))

	bal, err := svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), bal.Purchased)
	assert.Equal(t, int64(50), bal.Bonus)

	// Webhook redelivery grants nothing new.
	require.NoError(t, handler.Handle(ctx, event))
	bal, err = svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(550), bal.Total())
	assert.Len(t, repo.entries, 2)

	// Unrelated events are ignored.
	failed := events.NewPaymentFailedEvent(orderID, userID, "VG20260825093000", "stripe", "card_declined", "card was declined")
	require.NoError(t, handler.Handle(ctx, failed))
	assert.Len(t, repo.entries, 2)
}
