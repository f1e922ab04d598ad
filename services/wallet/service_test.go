package wallet

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gigbridge-platform/pkg/config"
	"gigbridge-platform/pkg/payment"
	"gigbridge-platform/pkg/repository"
	"gigbridge-platform/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &Wallet{}, &Entry{}, &TopupOrder{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return &Service{
		db:      db,
		node:    node,
		config:  &config.Config{},
		gateway: payment.NewMock("test-secret"),

		wallets: repository.ProvideStore[Wallet](db),
		entries: repository.ProvideStore[Entry](db),
		topups:  repository.ProvideStore[TopupOrder](db),
	}
}

func TestGetProvisionsZeroBalance(t *testing.T) {
	svc := newTestService(t)

	w, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", w.UserID)
	require.Equal(t, "0.00", w.Balance)

	again, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, w.ID, again.ID)
}

func TestCreditAndDebitWriteLedger(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, "user-1", decimal.RequireFromString("100"), EntryTopup, "pay-1", "top-up"))
	require.NoError(t, svc.Debit(ctx, "user-1", decimal.RequireFromString("40.50"), EntryWithdrawal, "", "withdrawal"))

	w, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "59.50", w.Balance)

	entries, err := svc.Entries(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "40.50", entries[0].Amount)
	require.Equal(t, "debit", entries[0].Direction)
	require.Equal(t, "100.00", entries[1].Amount)
	require.Equal(t, "credit", entries[1].Direction)
}

func TestDebitInsufficientBalance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, "user-1", decimal.RequireFromString("10"), EntryTopup, "", ""))

	err := svc.Debit(ctx, "user-1", decimal.RequireFromString("10.01"), EntryWithdrawal, "", "")
	require.ErrorIs(t, err, ErrInsufficientBalance)

	w, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "10.00", w.Balance)
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(t)

	err := svc.Credit(context.Background(), "user-1", decimal.Zero, EntryTopup, "", "")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestTopupVerifyFlow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mock := svc.gateway.(*payment.Mock)

	order, err := svc.Topup(ctx, "user-1", "250")
	require.NoError(t, err)
	require.Equal(t, TopupPending, order.Status)
	require.Equal(t, "250.00", order.Amount)

	w, err := svc.VerifyTopup(ctx, "user-1", order.OrderID, "pay-1", mock.Sign(order.OrderID, "pay-1"))
	require.NoError(t, err)
	require.Equal(t, "250.00", w.Balance)

	// replaying the callback must not double-credit
	_, err = svc.VerifyTopup(ctx, "user-1", order.OrderID, "pay-1", mock.Sign(order.OrderID, "pay-1"))
	require.Error(t, err)

	w, err = svc.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "250.00", w.Balance)
}

func TestVerifyTopupBadSignature(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	order, err := svc.Topup(ctx, "user-1", "50")
	require.NoError(t, err)

	_, err = svc.VerifyTopup(ctx, "user-1", order.OrderID, "pay-1", "forged")
	require.Error(t, err)

	w, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "0.00", w.Balance)
}

func TestWithdrawRequiresUpi(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, "user-1", decimal.RequireFromString("100"), EntryTopup, "", ""))

	_, err := svc.Withdraw(ctx, "user-1", "30", "")
	require.Error(t, err)

	w, err := svc.Withdraw(ctx, "user-1", "30", "user@upi")
	require.NoError(t, err)
	require.Equal(t, "70.00", w.Balance)
	require.Equal(t, "user@upi", w.UpiID)
}
