package event

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gigbridge-platform/pkg/repository"
	"gigbridge-platform/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type recordingArchiver struct {
	archived []string
}

func (r *recordingArchiver) ArchiveByEvent(ctx context.Context, tx *gorm.DB, eventID string) error {
	r.archived = append(r.archived, eventID)
	return nil
}

func newTestService(t *testing.T) (*Service, *recordingArchiver) {
	t.Helper()

	db := testutil.NewTestDB(t, &Event{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	archiver := &recordingArchiver{}
	return &Service{
		db:       db,
		node:     node,
		events:   repository.ProvideStore[Event](db),
		archiver: archiver,
	}, archiver
}

func validInput(start, end time.Time) CreateInput {
	return CreateInput{
		Title:     "Wedding Reception",
		Budget:    "5000",
		StartDate: start,
		EndDate:   end,
	}
}

func TestCreateEvent(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Now()

	ev, err := svc.Create(context.Background(), "host-1", validInput(now.Add(time.Hour), now.Add(3*time.Hour)))
	require.NoError(t, err)
	require.Equal(t, StatusPublished, ev.Status)
	require.Equal(t, "5000.00", ev.Budget)
	require.Contains(t, ev.Slug, "wedding-reception")
}

func TestCreateEventRejectsInvertedDates(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Now()

	_, err := svc.Create(context.Background(), "host-1", validInput(now.Add(2*time.Hour), now.Add(time.Hour)))
	require.Error(t, err)
}

func TestReconcilePure(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)
	ev := &Event{Status: StatusPublished, StartDate: start, EndDate: end}

	require.Equal(t, StatusPublished, Reconcile(ev, start.Add(-time.Minute)))
	require.Equal(t, StatusInProgress, Reconcile(ev, start))
	require.Equal(t, StatusInProgress, Reconcile(ev, end.Add(-time.Second)))
	require.Equal(t, StatusCompleted, Reconcile(ev, end))

	// completed is terminal regardless of clock
	done := &Event{Status: StatusCompleted, StartDate: start, EndDate: end}
	require.Equal(t, StatusCompleted, Reconcile(done, start.Add(-time.Hour)))
}

func TestGetReconcilesLazily(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Now()

	ev, err := svc.Create(context.Background(), "host-1", validInput(now.Add(-2*time.Hour), now.Add(2*time.Hour)))
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), ev.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, got.Status)
}

func TestCompleteCascadesToPools(t *testing.T) {
	svc, archiver := newTestService(t)
	now := time.Now()

	ev, err := svc.Create(context.Background(), "host-1", validInput(now.Add(-2*time.Hour), now.Add(2*time.Hour)))
	require.NoError(t, err)

	done, err := svc.Complete(context.Background(), "host-1", ev.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)
	require.Equal(t, []string{ev.ID}, archiver.archived)

	_, err = svc.Complete(context.Background(), "host-1", ev.ID)
	require.Error(t, err)
}

func TestCompleteRejectsForeignHost(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Now()

	ev, err := svc.Create(context.Background(), "host-1", validInput(now.Add(time.Hour), now.Add(2*time.Hour)))
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), "host-2", ev.ID)
	require.Error(t, err)
}

func TestReconcileAllSweep(t *testing.T) {
	svc, archiver := newTestService(t)
	now := time.Now()

	past, err := svc.Create(context.Background(), "host-1", validInput(now.Add(-4*time.Hour), now.Add(-2*time.Hour)))
	require.NoError(t, err)
	running, err := svc.Create(context.Background(), "host-1", validInput(now.Add(-time.Hour), now.Add(time.Hour)))
	require.NoError(t, err)
	future, err := svc.Create(context.Background(), "host-1", validInput(now.Add(time.Hour), now.Add(2*time.Hour)))
	require.NoError(t, err)

	require.NoError(t, svc.ReconcileAll(context.Background(), now))

	for id, want := range map[string]string{
		past.ID:    StatusCompleted,
		running.ID: StatusInProgress,
		future.ID:  StatusPublished,
	} {
		ev, err := svc.events.FindOne(context.Background(), &Event{ID: id})
		require.NoError(t, err)
		require.Equal(t, want, ev.Status)
	}
	require.Equal(t, []string{past.ID}, archiver.archived)
}

func TestUpdateOnlyWhilePublished(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Now()

	ev, err := svc.Create(context.Background(), "host-1", validInput(now.Add(-time.Hour), now.Add(time.Hour)))
	require.NoError(t, err)

	// lazy reconcile moves it in_progress, so edits are rejected
	_, err = svc.Get(context.Background(), ev.ID)
	require.NoError(t, err)

	title := "Renamed"
	_, err = svc.Update(context.Background(), "host-1", ev.ID, UpdateInput{Title: &title})
	require.Error(t, err)
}
