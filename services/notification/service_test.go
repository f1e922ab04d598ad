package notification

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gigbridge-platform/pkg/repository"
	"gigbridge-platform/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &Notification{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return &Service{
		db:            db,
		node:          node,
		notifications: repository.ProvideStore[Notification](db),
	}
}

func TestCreateAndList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, Payload{UserID: "gig-1", Kind: KindApplicationAccepted, Title: "Accepted"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Payload{UserID: "gig-2", Kind: KindBadgeAwarded, Title: "Badge"})
	require.NoError(t, err)

	items, err := svc.List(ctx, "gig-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, KindApplicationAccepted, items[0].Kind)
	require.False(t, items[0].Read)
}

func TestMarkRead(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	n, err := svc.Create(ctx, Payload{UserID: "gig-1", Kind: KindEscrowReleased})
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, "gig-1", n.ID))

	items, err := svc.List(ctx, "gig-1")
	require.NoError(t, err)
	require.True(t, items[0].Read)

	// another user cannot touch the row
	require.Error(t, svc.MarkRead(ctx, "gig-2", n.ID))
}

func TestMarkAllRead(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, Payload{UserID: "gig-1", Kind: KindKYCDecision})
		require.NoError(t, err)
	}

	require.NoError(t, svc.MarkAllRead(ctx, "gig-1"))

	items, err := svc.List(ctx, "gig-1")
	require.NoError(t, err)
	for _, n := range items {
		require.True(t, n.Read)
	}
}
