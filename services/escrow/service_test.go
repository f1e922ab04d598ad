package escrow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gigbridge-platform/pkg/config"
	"gigbridge-platform/pkg/money"
	"gigbridge-platform/pkg/payment"
	"gigbridge-platform/pkg/repository"
	"gigbridge-platform/services/event"
	"gigbridge-platform/services/pool"
	"gigbridge-platform/services/testutil"
	"gigbridge-platform/services/wallet"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeSequence struct {
	receipts int
	payouts  int
}

func (f *fakeSequence) NextReceiptCode(ctx context.Context) (string, error) {
	f.receipts++
	return fmt.Sprintf("RCPT-%03d", f.receipts), nil
}

func (f *fakeSequence) NextPayoutCode(ctx context.Context) (string, error) {
	f.payouts++
	return fmt.Sprintf("PYT-%03d", f.payouts), nil
}

type fixture struct {
	db      *gorm.DB
	escrow  *Service
	events  *event.Service
	pools   *pool.Service
	wallets *wallet.Service
	mock    *payment.Mock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t,
		&event.Event{}, &pool.Pool{}, &pool.Member{}, &pool.Application{},
		&wallet.Wallet{}, &wallet.Entry{}, &wallet.TopupOrder{},
		&Contract{}, &Payment{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	mock := payment.NewMock("test-secret")

	events := event.NewService(event.ServiceParams{DB: db, Node: node})
	pools := pool.NewService(pool.ServiceParams{DB: db, Node: node, Events: events})
	events.SetArchiver(pools)
	wallets := wallet.NewService(wallet.ServiceParams{DB: db, Node: node, Config: &config.Config{}, Gateway: mock})

	svc := &Service{
		db:   db,
		node: node,

		contracts: repository.ProvideStore[Contract](db),
		payments:  repository.ProvideStore[Payment](db),

		events:  events,
		pools:   pools,
		wallets: wallets,
		gateway: mock,
		seq:     &fakeSequence{},
	}

	return &fixture{db: db, escrow: svc, events: events, pools: pools, wallets: wallets, mock: mock}
}

// seedStaffedEvent creates an event with an organizer pool and two accepted
// gig members.
func (f *fixture) seedStaffedEvent(t *testing.T) *event.Event {
	t.Helper()
	ctx := context.Background()

	now := time.Now()
	ev, err := f.events.Create(ctx, "host-1", event.CreateInput{
		Title:     "Concert Crew",
		Budget:    "1000",
		StartDate: now.Add(time.Hour),
		EndDate:   now.Add(6 * time.Hour),
	})
	require.NoError(t, err)

	p, err := f.pools.Invite(ctx, "host-1", ev.ID, "org-1", "crew", 5)
	require.NoError(t, err)

	for _, gig := range []string{"gig-1", "gig-2"} {
		app, err := f.pools.Apply(ctx, gig, p.ID, "100")
		require.NoError(t, err)
		_, err = f.pools.Decide(ctx, "org-1", app.ID, true)
		require.NoError(t, err)
	}

	return ev
}

func TestFundValidatesSplit(t *testing.T) {
	f := newFixture(t)
	ev := f.seedStaffedEvent(t)

	_, err := f.escrow.Fund(context.Background(), "host-1", FundInput{
		EventID: ev.ID, Amount: "100", OrganizerPct: 20, GigsPct: 70, PlatformPct: 5,
	})
	require.ErrorIs(t, err, ErrBadSplit)
}

func TestFundCreatesContractAndPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedStaffedEvent(t)

	contract, err := f.escrow.Fund(ctx, "host-1", FundInput{
		EventID: ev.ID, Amount: "100.004", OrganizerPct: 20, GigsPct: 70, PlatformPct: 10, Method: "upi",
	})
	require.NoError(t, err)
	require.Equal(t, StatusFunded, contract.Status)
	require.Equal(t, "100.00", contract.Total)
	require.Equal(t, "org-1", contract.OrganizerID)
	require.NotEmpty(t, contract.OrderID)

	payments, err := f.escrow.PaymentsByEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	require.Equal(t, PaymentFund, payments[0].Kind)
	require.Equal(t, PaymentCreated, payments[0].Status)

	_, err = f.escrow.Fund(ctx, "host-1", FundInput{
		EventID: ev.ID, Amount: "100", OrganizerPct: 20, GigsPct: 70, PlatformPct: 10,
	})
	require.Error(t, err)
}

func TestFundWithHoldStartsInProgress(t *testing.T) {
	f := newFixture(t)
	ev := f.seedStaffedEvent(t)

	contract, err := f.escrow.Fund(context.Background(), "host-1", FundInput{
		EventID: ev.ID, Amount: "100", OrganizerPct: 20, GigsPct: 70, PlatformPct: 10, Hold: true,
	})
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, contract.Status)
}

func TestConfirmFundingCapturesPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedStaffedEvent(t)

	contract, err := f.escrow.Fund(ctx, "host-1", FundInput{
		EventID: ev.ID, Amount: "100", OrganizerPct: 20, GigsPct: 70, PlatformPct: 10,
	})
	require.NoError(t, err)

	_, err = f.escrow.ConfirmFunding(ctx, "host-1", contract.OrderID, "pay-1", "forged")
	require.Error(t, err)

	_, err = f.escrow.ConfirmFunding(ctx, "host-1", contract.OrderID, "pay-1", f.mock.Sign(contract.OrderID, "pay-1"))
	require.NoError(t, err)

	payments, err := f.escrow.PaymentsByEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Equal(t, PaymentCaptured, payments[0].Status)
	require.Equal(t, "pay-1", payments[0].ReferenceID)
}

func TestMarkInProgressIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedStaffedEvent(t)

	_, err := f.escrow.Fund(ctx, "host-1", FundInput{
		EventID: ev.ID, Amount: "100", OrganizerPct: 20, GigsPct: 70, PlatformPct: 10,
	})
	require.NoError(t, err)

	require.NoError(t, f.escrow.MarkInProgress(ctx, ev.ID))
	require.NoError(t, f.escrow.MarkInProgress(ctx, ev.ID))

	contract, err := f.escrow.GetByEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, contract.Status)
}

func TestReleaseSplitsAndCreditsWallets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedStaffedEvent(t)

	_, err := f.escrow.Fund(ctx, "host-1", FundInput{
		EventID: ev.ID, Amount: "100.01", OrganizerPct: 20, GigsPct: 70, PlatformPct: 10,
	})
	require.NoError(t, err)

	contract, err := f.escrow.Release(ctx, "host-1", ev.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReleased, contract.Status)
	require.NotEmpty(t, contract.ReceiptCode)

	org, err := f.wallets.Get(ctx, "org-1")
	require.NoError(t, err)
	require.Equal(t, "20.00", org.Balance)

	// gigs share 70.01 split across two members, last absorbs the remainder
	gig1, err := f.wallets.Get(ctx, "gig-1")
	require.NoError(t, err)
	gig2, err := f.wallets.Get(ctx, "gig-2")
	require.NoError(t, err)
	require.Equal(t, "35.01", gig1.Balance)
	require.Equal(t, "35.00", gig2.Balance)

	payments, err := f.escrow.PaymentsByEvent(ctx, ev.ID)
	require.NoError(t, err)
	// fund + organizer + two gigs + platform record
	require.Len(t, payments, 5)
}

func TestReleaseTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedStaffedEvent(t)

	_, err := f.escrow.Fund(ctx, "host-1", FundInput{
		EventID: ev.ID, Amount: "100", OrganizerPct: 20, GigsPct: 70, PlatformPct: 10,
	})
	require.NoError(t, err)

	_, err = f.escrow.Release(ctx, "host-1", ev.ID)
	require.NoError(t, err)

	_, err = f.escrow.Release(ctx, "host-1", ev.ID)
	require.ErrorIs(t, err, ErrAlreadyReleased)

	org, err := f.wallets.Get(ctx, "org-1")
	require.NoError(t, err)
	require.Equal(t, "20.00", org.Balance)
}

func TestReleaseFundedBeforeStaffingPaysFullTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Now()
	ev, err := f.events.Create(ctx, "host-1", event.CreateInput{
		Title:     "Unstaffed Event",
		Budget:    "500",
		StartDate: now.Add(time.Hour),
		EndDate:   now.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	// funded before any organizer pool exists
	contract, err := f.escrow.Fund(ctx, "host-1", FundInput{
		EventID: ev.ID, Amount: "100", OrganizerPct: 20, GigsPct: 70, PlatformPct: 10,
	})
	require.NoError(t, err)
	require.Empty(t, contract.OrganizerID)

	_, err = f.escrow.Release(ctx, "host-1", ev.ID)
	require.NoError(t, err)

	// with no organizer and no members both shares fall back to the host
	host, err := f.wallets.Get(ctx, "host-1")
	require.NoError(t, err)
	require.Equal(t, "90.00", host.Balance)

	payments, err := f.escrow.PaymentsByEvent(ctx, ev.ID)
	require.NoError(t, err)
	paid := decimal.Zero
	for _, p := range payments {
		if p.Kind == PaymentPayout {
			amt, err := money.Parse(p.Amount)
			require.NoError(t, err)
			paid = paid.Add(amt)
		}
	}
	require.Equal(t, "100.00", money.Format(paid))
}

func TestReleasePaysOrganizerStaffedAfterFunding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Now()
	ev, err := f.events.Create(ctx, "host-1", event.CreateInput{
		Title:     "Late Staffing",
		Budget:    "500",
		StartDate: now.Add(time.Hour),
		EndDate:   now.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	contract, err := f.escrow.Fund(ctx, "host-1", FundInput{
		EventID: ev.ID, Amount: "100", OrganizerPct: 20, GigsPct: 70, PlatformPct: 10,
	})
	require.NoError(t, err)
	require.Empty(t, contract.OrganizerID)

	// organizer joins after the escrow was funded
	_, err = f.pools.Invite(ctx, "host-1", ev.ID, "org-1", "", 5)
	require.NoError(t, err)

	_, err = f.escrow.Release(ctx, "host-1", ev.ID)
	require.NoError(t, err)

	org, err := f.wallets.Get(ctx, "org-1")
	require.NoError(t, err)
	require.Equal(t, "20.00", org.Balance)
}

func TestReleaseWithoutMembersReturnsGigsShareToHost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Now()
	ev, err := f.events.Create(ctx, "host-1", event.CreateInput{
		Title:     "Empty Event",
		Budget:    "500",
		StartDate: now.Add(time.Hour),
		EndDate:   now.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	_, err = f.pools.Invite(ctx, "host-1", ev.ID, "org-1", "", 5)
	require.NoError(t, err)

	_, err = f.escrow.Fund(ctx, "host-1", FundInput{
		EventID: ev.ID, Amount: "100", OrganizerPct: 20, GigsPct: 70, PlatformPct: 10,
	})
	require.NoError(t, err)

	_, err = f.escrow.Release(ctx, "host-1", ev.ID)
	require.NoError(t, err)

	host, err := f.wallets.Get(ctx, "host-1")
	require.NoError(t, err)
	require.Equal(t, "70.00", host.Balance)
}
