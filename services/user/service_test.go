package user

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gigbridge-platform/pkg/config"
	"gigbridge-platform/pkg/repository"
	"gigbridge-platform/pkg/token"
	"gigbridge-platform/services/event"
	"gigbridge-platform/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeUploader struct{}

func (fakeUploader) Upload(ctx context.Context, dir, filename, contentType string, r io.Reader, size int64) (string, error) {
	return "https://cdn.test/" + dir + "/" + filename, nil
}

func newTestService(t *testing.T) (*Service, *event.Service) {
	t.Helper()

	db := testutil.NewTestDB(t, &User{}, &Review{}, &event.Event{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Auth.Secret = "test-secret"
	cfg.Auth.AccessTokenTTL = 15 * time.Minute
	cfg.Auth.RefreshTokenTTL = 24 * time.Hour

	events := event.NewService(event.ServiceParams{DB: db, Node: node})

	return &Service{
		db:   db,
		node: node,

		users:   repository.ProvideStore[User](db),
		reviews: repository.ProvideStore[Review](db),

		tokens:   token.NewManager(cfg),
		uploader: fakeUploader{},
		events:   events,
	}, events
}

func register(t *testing.T, svc *Service, email, role string) *User {
	t.Helper()

	u, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Test User",
		Email:    email,
		Phone:    "9" + email,
		Password: "password123",
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u := register(t, svc, "gig@example.com", RoleGig)
	require.Equal(t, KYCPending, u.KYCStatus)
	require.NotEqual(t, "password123", u.PasswordHash)

	// duplicate email
	_, err := svc.Register(ctx, RegisterInput{
		Name: "Other", Email: "gig@example.com", Phone: "123", Password: "password123", Role: RoleGig,
	})
	require.Error(t, err)

	// admin is not self-registrable
	_, err = svc.Register(ctx, RegisterInput{
		Name: "Root", Email: "admin@example.com", Phone: "456", Password: "password123", Role: RoleAdmin,
	})
	require.Error(t, err)

	logged, access, refresh, err := svc.Login(ctx, "gig@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, u.ID, logged.ID)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	_, _, _, err = svc.Login(ctx, "gig@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrBadCredentials)
}

func TestLoginBannedUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u := register(t, svc, "banned@example.com", RoleHost)
	_, err := svc.SetBanned(ctx, u.ID, true)
	require.NoError(t, err)

	_, _, _, err = svc.Login(ctx, "banned@example.com", "password123")
	require.ErrorIs(t, err, ErrBanned)
}

func TestRefreshRotatesPair(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u := register(t, svc, "refresh@example.com", RoleOrganizer)
	_, _, refresh, err := svc.Login(ctx, "refresh@example.com", "password123")
	require.NoError(t, err)

	got, access2, refresh2, err := svc.Refresh(ctx, refresh)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.NotEmpty(t, access2)
	require.NotEmpty(t, refresh2)

	// an access token is not a refresh token
	_, _, _, err = svc.Refresh(ctx, access2)
	require.Error(t, err)
}

func TestKYCFlow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u := register(t, svc, "kyc@example.com", RoleGig)

	// nothing submitted yet
	_, err := svc.DecideKYC(ctx, u.ID, true)
	require.Error(t, err)

	submitted, err := svc.SubmitKYC(ctx, u.ID, "passport.jpg", "image/jpeg", nil, 0)
	require.NoError(t, err)
	require.Equal(t, KYCSubmitted, submitted.KYCStatus)
	require.Contains(t, submitted.KYCDocument, "kyc/"+u.ID)

	approved, err := svc.DecideKYC(ctx, u.ID, true)
	require.NoError(t, err)
	require.Equal(t, KYCApproved, approved.KYCStatus)

	verified, err := svc.IsKYCVerified(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, verified)
}

func TestUploadAvatar(t *testing.T) {
	svc, _ := newTestService(t)

	u := register(t, svc, "avatar@example.com", RoleGig)
	got, err := svc.UploadAvatar(context.Background(), u.ID, "me.png", "image/png", nil, 0)
	require.NoError(t, err)
	require.Contains(t, got.AvatarURL, "avatars/"+u.ID)
}

func TestSubmitReviewRules(t *testing.T) {
	svc, events := newTestService(t)
	ctx := context.Background()

	host := register(t, svc, "host@example.com", RoleHost)
	gig := register(t, svc, "worker@example.com", RoleGig)

	now := time.Now()
	ev, err := events.Create(ctx, host.ID, event.CreateInput{
		Title: "Review Event", Budget: "100",
		StartDate: now.Add(-3 * time.Hour), EndDate: now.Add(time.Hour),
	})
	require.NoError(t, err)

	// event still running
	_, err = svc.SubmitReview(ctx, host.ID, ReviewInput{EventID: ev.ID, RevieweeID: gig.ID, Rating: 5})
	require.Error(t, err)

	_, err = events.Complete(ctx, host.ID, ev.ID)
	require.NoError(t, err)

	_, err = svc.SubmitReview(ctx, host.ID, ReviewInput{EventID: ev.ID, RevieweeID: gig.ID, Rating: 6})
	require.ErrorIs(t, err, ErrBadRating)

	review, err := svc.SubmitReview(ctx, host.ID, ReviewInput{EventID: ev.ID, RevieweeID: gig.ID, Rating: 4, Comment: "solid work"})
	require.NoError(t, err)
	require.Equal(t, 4, review.Rating)

	// one review per (event, reviewer, reviewee)
	_, err = svc.SubmitReview(ctx, host.ID, ReviewInput{EventID: ev.ID, RevieweeID: gig.ID, Rating: 2})
	require.Error(t, err)

	avg, err := svc.AverageRating(ctx, gig.ID)
	require.NoError(t, err)
	require.InDelta(t, 4.0, avg, 0.001)
}

func TestUpdateProfilePhoneConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := register(t, svc, "a@example.com", RoleGig)
	b := register(t, svc, "b@example.com", RoleGig)

	_, err := svc.UpdateProfile(ctx, b.ID, UpdateProfileInput{Phone: &a.Phone})
	require.Error(t, err)
}
