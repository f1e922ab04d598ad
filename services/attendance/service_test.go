package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gigbridge-platform/pkg/config"
	"gigbridge-platform/pkg/payment"
	"gigbridge-platform/pkg/repository"
	"gigbridge-platform/services/escrow"
	"gigbridge-platform/services/event"
	"gigbridge-platform/services/pool"
	"gigbridge-platform/services/testutil"
	"gigbridge-platform/services/wallet"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fixture struct {
	svc     *Service
	events  *event.Service
	pools   *pool.Service
	escrows *escrow.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t,
		&event.Event{}, &pool.Pool{}, &pool.Member{}, &pool.Application{},
		&wallet.Wallet{}, &wallet.Entry{}, &wallet.TopupOrder{},
		&escrow.Contract{}, &escrow.Payment{}, &Attendance{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	mock := payment.NewMock("test-secret")
	events := event.NewService(event.ServiceParams{DB: db, Node: node})
	pools := pool.NewService(pool.ServiceParams{DB: db, Node: node, Events: events})
	events.SetArchiver(pools)
	wallets := wallet.NewService(wallet.ServiceParams{DB: db, Node: node, Config: &config.Config{}, Gateway: mock})

	escrows := escrow.NewService(escrow.ServiceParams{
		DB: db, Node: node, Events: events, Pools: pools, Wallets: wallets,
		Gateway: mock, Sequence: staticSequence{},
	})

	svc := &Service{
		db:          db,
		node:        node,
		attendances: repository.ProvideStore[Attendance](db),
		events:      events,
		pools:       pools,
		escrows:     escrows,
	}

	return &fixture{svc: svc, events: events, pools: pools, escrows: escrows}
}

type staticSequence struct{}

func (staticSequence) NextReceiptCode(ctx context.Context) (string, error) { return "RCPT-TEST", nil }
func (staticSequence) NextPayoutCode(ctx context.Context) (string, error)  { return "PYT-TEST", nil }

// seedRunningEvent creates an event that started two hours ago with gig-1
// accepted into its pool.
func (f *fixture) seedRunningEvent(t *testing.T, start, end time.Time) *event.Event {
	t.Helper()
	ctx := context.Background()

	ev, err := f.events.Create(ctx, "host-1", event.CreateInput{
		Title:     "Festival Shift",
		Budget:    "1000",
		StartDate: start,
		EndDate:   end,
	})
	require.NoError(t, err)

	p, err := f.pools.Invite(ctx, "host-1", ev.ID, "org-1", "", 5)
	require.NoError(t, err)

	app, err := f.pools.Apply(ctx, "gig-1", p.ID, "100")
	require.NoError(t, err)
	_, err = f.pools.Decide(ctx, "org-1", app.ID, true)
	require.NoError(t, err)

	return ev
}

func TestCheckInRequiresMembership(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	ev := f.seedRunningEvent(t, now.Add(-time.Hour), now.Add(3*time.Hour))

	_, err := f.svc.CheckIn(context.Background(), "gig-outsider", ev.ID, now)
	require.ErrorIs(t, err, ErrNotPoolMember)
}

func TestCheckInBeforeStart(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	ev := f.seedRunningEvent(t, now.Add(time.Hour), now.Add(3*time.Hour))

	_, err := f.svc.CheckIn(context.Background(), "gig-1", ev.ID, now)
	require.ErrorIs(t, err, ErrEventNotStarted)
}

func TestCheckInAdvancesEscrow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	ev := f.seedRunningEvent(t, now.Add(-time.Hour), now.Add(3*time.Hour))

	_, err := f.escrows.Fund(ctx, "host-1", escrow.FundInput{
		EventID: ev.ID, Amount: "500", OrganizerPct: 20, GigsPct: 70, PlatformPct: 10,
	})
	require.NoError(t, err)

	att, err := f.svc.CheckIn(ctx, "gig-1", ev.ID, now)
	require.NoError(t, err)
	require.Equal(t, StatusCheckedIn, att.Status)

	contract, err := f.escrows.GetByEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Equal(t, escrow.StatusInProgress, contract.Status)
}

func TestCheckInIdempotentWhileOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	ev := f.seedRunningEvent(t, now.Add(-time.Hour), now.Add(3*time.Hour))

	first, err := f.svc.CheckIn(ctx, "gig-1", ev.ID, now)
	require.NoError(t, err)

	second, err := f.svc.CheckIn(ctx, "gig-1", ev.ID, now.Add(10*time.Minute))
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, StatusCheckedIn, second.Status)
}

func TestSingleSessionPerEventAndGig(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	ev := f.seedRunningEvent(t, now.Add(-time.Hour), now.Add(3*time.Hour))

	first, err := f.svc.CheckIn(ctx, "gig-1", ev.ID, now)
	require.NoError(t, err)

	// a second row for the same (event, gig) violates the unique index, so
	// two racing check-ins cannot both insert
	dup := &Attendance{
		ID:      f.svc.node.Generate().String(),
		EventID: ev.ID,
		GigID:   "gig-1",
		CheckIn: now,
		Hours:   "0.00",
		Status:  StatusCheckedIn,
	}
	require.Error(t, f.svc.attendances.Create(ctx, dup))

	// the loser falls back to the winning session
	again, err := f.svc.CheckIn(ctx, "gig-1", ev.ID, now.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	rows, err := f.svc.ByEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestCheckOutComputesHoursAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	ev := f.seedRunningEvent(t, now.Add(-time.Hour), now.Add(5*time.Hour))

	att, err := f.svc.CheckIn(ctx, "gig-1", ev.ID, now)
	require.NoError(t, err)

	done, err := f.svc.CheckOut(ctx, "gig-1", ev.ID, now.Add(2*time.Hour+30*time.Minute))
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)
	require.Equal(t, "2.50", done.Hours)
	require.Equal(t, att.ID, done.ID)

	again, err := f.svc.CheckOut(ctx, "gig-1", ev.ID, now.Add(4*time.Hour))
	require.NoError(t, err)
	require.Equal(t, "2.50", again.Hours)
}

func TestReopenWithinWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	ev := f.seedRunningEvent(t, now.Add(-time.Hour), now.Add(5*time.Hour))

	att, err := f.svc.CheckIn(ctx, "gig-1", ev.ID, now)
	require.NoError(t, err)

	// fat-finger checkout after two worked minutes
	_, err = f.svc.CheckOut(ctx, "gig-1", ev.ID, now.Add(2*time.Minute))
	require.NoError(t, err)

	reopened, err := f.svc.CheckIn(ctx, "gig-1", ev.ID, now.Add(3*time.Minute))
	require.NoError(t, err)
	require.Equal(t, att.ID, reopened.ID)
	require.Equal(t, StatusCheckedIn, reopened.Status)
	require.Nil(t, reopened.CheckOut)
}

func TestCheckInAfterRealSessionConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	ev := f.seedRunningEvent(t, now.Add(-2*time.Hour), now.Add(5*time.Hour))

	_, err := f.svc.CheckIn(ctx, "gig-1", ev.ID, now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = f.svc.CheckOut(ctx, "gig-1", ev.ID, now)
	require.NoError(t, err)

	_, err = f.svc.CheckIn(ctx, "gig-1", ev.ID, now.Add(time.Minute))
	require.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestCheckOutClampsToEventEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	ev := f.seedRunningEvent(t, now.Add(-3*time.Hour), now.Add(time.Second))

	_, err := f.svc.CheckIn(ctx, "gig-1", ev.ID, now.Add(-2*time.Hour))
	require.NoError(t, err)

	done, err := f.svc.CheckOut(ctx, "gig-1", ev.ID, now.Add(4*time.Hour))
	require.NoError(t, err)
	// clamped to the event end, roughly two worked hours
	require.Equal(t, "2.00", done.Hours)
}

func TestAutoCloseSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	ev := f.seedRunningEvent(t, now.Add(-3*time.Hour), now.Add(time.Second))

	_, err := f.svc.CheckIn(ctx, "gig-1", ev.ID, now.Add(-time.Hour))
	require.NoError(t, err)

	require.NoError(t, f.svc.AutoCloseAll(ctx, now.Add(2*time.Hour)))

	rows, err := f.svc.ByEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, StatusCompleted, rows[0].Status)
	require.Equal(t, "1.00", rows[0].Hours)
}

func TestCompletedCountDistinctEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 2; i++ {
		ev := f.seedRunningEvent(t, now.Add(-2*time.Hour), now.Add(5*time.Hour))
		_, err := f.svc.CheckIn(ctx, "gig-1", ev.ID, now.Add(-time.Hour))
		require.NoError(t, err)
		_, err = f.svc.CheckOut(ctx, "gig-1", ev.ID, now)
		require.NoError(t, err)
	}

	count, err := f.svc.CompletedCount(ctx, "gig-1")
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}
