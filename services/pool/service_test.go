package pool

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gigbridge-platform/pkg/repository"
	"gigbridge-platform/services/event"
	"gigbridge-platform/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) (*Service, *event.Service) {
	t.Helper()

	db := testutil.NewTestDB(t, &event.Event{}, &Pool{}, &Member{}, &Application{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	events := event.NewService(event.ServiceParams{DB: db, Node: node})
	svc := &Service{
		db:   db,
		node: node,

		pools:        repository.ProvideStore[Pool](db),
		members:      repository.ProvideStore[Member](db),
		applications: repository.ProvideStore[Application](db),

		events: events,
	}
	events.SetArchiver(svc)
	return svc, events
}

func seedEvent(t *testing.T, events *event.Service, hostID string) *event.Event {
	t.Helper()

	now := time.Now()
	ev, err := events.Create(context.Background(), hostID, event.CreateInput{
		Title:     "Catering Gig",
		Budget:    "1000",
		StartDate: now.Add(time.Hour),
		EndDate:   now.Add(5 * time.Hour),
	})
	require.NoError(t, err)
	return ev
}

func TestInviteCreatesPoolAndAssignsOrganizer(t *testing.T) {
	svc, events := newTestService(t)
	ctx := context.Background()
	ev := seedEvent(t, events, "host-1")

	pool, err := svc.Invite(ctx, "host-1", ev.ID, "org-1", "servers", 5)
	require.NoError(t, err)
	require.Equal(t, StatusOpen, pool.Status)
	require.Equal(t, 0, pool.MemberCount)

	got, err := events.Get(ctx, ev.ID)
	require.NoError(t, err)
	require.Equal(t, "org-1", got.OrganizerID)

	// one pool per organizer per event
	_, err = svc.Invite(ctx, "host-1", ev.ID, "org-1", "servers", 5)
	require.Error(t, err)
}

func TestInviteRejectsForeignHost(t *testing.T) {
	svc, events := newTestService(t)
	ev := seedEvent(t, events, "host-1")

	_, err := svc.Invite(context.Background(), "host-2", ev.ID, "org-1", "", 5)
	require.Error(t, err)
}

func TestApplyOncePerPool(t *testing.T) {
	svc, events := newTestService(t)
	ctx := context.Background()
	ev := seedEvent(t, events, "host-1")

	pool, err := svc.Invite(ctx, "host-1", ev.ID, "org-1", "", 5)
	require.NoError(t, err)

	app, err := svc.Apply(ctx, "gig-1", pool.ID, "150")
	require.NoError(t, err)
	require.Equal(t, ApplicationPending, app.Status)
	require.Equal(t, "150.00", app.ProposedRate)

	_, err = svc.Apply(ctx, "gig-1", pool.ID, "175")
	require.ErrorIs(t, err, ErrAlreadyApplied)
}

func TestAcceptRespectsCapacity(t *testing.T) {
	svc, events := newTestService(t)
	ctx := context.Background()
	ev := seedEvent(t, events, "host-1")

	pool, err := svc.Invite(ctx, "host-1", ev.ID, "org-1", "", 1)
	require.NoError(t, err)

	first, err := svc.Apply(ctx, "gig-1", pool.ID, "100")
	require.NoError(t, err)
	second, err := svc.Apply(ctx, "gig-2", pool.ID, "100")
	require.NoError(t, err)

	decided, err := svc.Decide(ctx, "org-1", first.ID, true)
	require.NoError(t, err)
	require.Equal(t, ApplicationAccepted, decided.Status)

	_, err = svc.Decide(ctx, "org-1", second.ID, true)
	require.ErrorIs(t, err, ErrPoolFull)

	got, err := svc.Get(ctx, pool.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.MemberCount)
	require.Equal(t, StatusActive, got.Status)

	ok, err := svc.IsAcceptedMember(ctx, ev.ID, "gig-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.IsAcceptedMember(ctx, ev.ID, "gig-2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDecisionIsTerminal(t *testing.T) {
	svc, events := newTestService(t)
	ctx := context.Background()
	ev := seedEvent(t, events, "host-1")

	pool, err := svc.Invite(ctx, "host-1", ev.ID, "org-1", "", 5)
	require.NoError(t, err)

	app, err := svc.Apply(ctx, "gig-1", pool.ID, "100")
	require.NoError(t, err)

	_, err = svc.Decide(ctx, "org-1", app.ID, false)
	require.NoError(t, err)

	_, err = svc.Decide(ctx, "org-1", app.ID, true)
	require.ErrorIs(t, err, ErrDecided)

	got, err := svc.Get(ctx, pool.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.MemberCount)
}

func TestDecideRejectsForeignOrganizer(t *testing.T) {
	svc, events := newTestService(t)
	ctx := context.Background()
	ev := seedEvent(t, events, "host-1")

	pool, err := svc.Invite(ctx, "host-1", ev.ID, "org-1", "", 5)
	require.NoError(t, err)

	app, err := svc.Apply(ctx, "gig-1", pool.ID, "100")
	require.NoError(t, err)

	_, err = svc.Decide(ctx, "org-2", app.ID, true)
	require.Error(t, err)
}

func TestEventCompletionArchivesPools(t *testing.T) {
	svc, events := newTestService(t)
	ctx := context.Background()
	ev := seedEvent(t, events, "host-1")

	pool, err := svc.Invite(ctx, "host-1", ev.ID, "org-1", "", 5)
	require.NoError(t, err)

	_, err = events.Complete(ctx, "host-1", ev.ID)
	require.NoError(t, err)

	got, err := svc.Get(ctx, pool.ID)
	require.NoError(t, err)
	require.Equal(t, StatusArchived, got.Status)

	// archived pools take no applications
	_, err = svc.Apply(ctx, "gig-1", pool.ID, "100")
	require.Error(t, err)
}
