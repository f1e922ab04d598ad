package user

import (
	"context"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"gigbridge-platform/pkg/chain"
	"gigbridge-platform/pkg/db/option"
	"gigbridge-platform/pkg/errutil"
	"gigbridge-platform/pkg/featureflags"
	"gigbridge-platform/pkg/repository"
	"gigbridge-platform/pkg/storage"
	"gigbridge-platform/pkg/task"
	"gigbridge-platform/pkg/token"
	"gigbridge-platform/services/event"
	"gigbridge-platform/services/notification"
)

var (
	ErrBadCredentials = errutil.Unauthorized("invalid email or password")
	ErrBanned         = errutil.Forbidden("account is deactivated")
	ErrBadRating      = errutil.UnprocessableEntity("rating must be between 1 and 5")
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	users   repository.Repository[User]
	reviews repository.Repository[Review]

	tokens   *token.Manager
	uploader storage.Uploader
	events   *event.Service
	flags    featureflags.FeatureFlag
	chain    *chain.Client
	enqueuer task.Enqueuer
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Tokens   *token.Manager
	Uploader storage.Uploader `optional:"true"`
	Events   *event.Service
	Flags    featureflags.FeatureFlag `optional:"true"`
	Chain    *chain.Client            `optional:"true"`
	Enqueuer task.Enqueuer            `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,

		users:   repository.ProvideStore[User](p.DB),
		reviews: repository.ProvideStore[Review](p.DB),

		tokens:   p.Tokens,
		uploader: p.Uploader,
		events:   p.Events,
		flags:    p.Flags,
		chain:    p.Chain,
		enqueuer: p.Enqueuer,
	}
}

type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

// Register creates an account. Admin accounts are provisioned out of band,
// never self-registered.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	switch in.Role {
	case RoleHost, RoleOrganizer, RoleGig:
	default:
		return nil, errutil.UnprocessableEntity("role must be host, organizer or gig")
	}

	if existing, err := s.users.FindOne(ctx, &User{Email: in.Email}); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, errutil.Conflict("email already registered")
	}
	if existing, err := s.users.FindOne(ctx, &User{Phone: in.Phone}); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, errutil.Conflict("phone already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           s.node.Generate().String(),
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: string(hash),
		Role:         in.Role,
		KYCStatus:    KYCPending,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	if s.chainEnabled(ctx) {
		if hash := s.chain.CreateProfile(ctx, u.ID, u.Role); hash != "" {
			_ = s.users.Update(ctx, u.ID, map[string]any{"chain_tx": hash})
		}
	}

	return u, nil
}

// Login verifies credentials and issues the cookie token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, string, error) {
	u, err := s.users.FindOne(ctx, &User{Email: email})
	if err != nil {
		return nil, "", "", err
	}
	if u == nil {
		return nil, "", "", ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", "", ErrBadCredentials
	}
	if u.Banned {
		return nil, "", "", ErrBanned
	}

	access, refresh, err := s.tokens.Pair(u.ID, u.Role)
	if err != nil {
		return nil, "", "", err
	}
	return u, access, refresh, nil
}

// Refresh rotates the token pair off a valid refresh token.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (*User, string, string, error) {
	claims, err := s.tokens.VerifyRefresh(rawRefresh)
	if err != nil {
		return nil, "", "", err
	}

	u, err := s.Get(ctx, claims.UserID)
	if err != nil {
		return nil, "", "", err
	}
	if u.Banned {
		return nil, "", "", ErrBanned
	}

	access, refresh, err := s.tokens.Pair(u.ID, u.Role)
	if err != nil {
		return nil, "", "", err
	}
	return u, access, refresh, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.users.FindOne(ctx, &User{ID: id})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errutil.NotFound("user not found")
	}
	return u, nil
}

type UpdateProfileInput struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

func (s *Service) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (*User, error) {
	values := map[string]any{}
	if in.Name != nil {
		values["name"] = *in.Name
	}
	if in.Phone != nil {
		if existing, err := s.users.FindOne(ctx, &User{Phone: *in.Phone}); err != nil {
			return nil, err
		} else if existing != nil && existing.ID != id {
			return nil, errutil.Conflict("phone already registered")
		}
		values["phone"] = *in.Phone
	}
	if len(values) == 0 {
		return s.Get(ctx, id)
	}
	values["updated_at"] = time.Now()

	if err := s.users.Update(ctx, id, values); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// UploadAvatar stores the image and records its public URL.
func (s *Service) UploadAvatar(ctx context.Context, userID, filename, contentType string, r io.Reader, size int64) (*User, error) {
	if s.uploader == nil {
		return nil, errutil.Internal("object storage not configured")
	}

	url, err := s.uploader.Upload(ctx, "avatars/"+userID, filename, contentType, r, size)
	if err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, userID, map[string]any{"avatar_url": url, "updated_at": time.Now()}); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// SubmitKYC stores the identity document and moves KYC to submitted.
func (s *Service) SubmitKYC(ctx context.Context, userID, filename, contentType string, r io.Reader, size int64) (*User, error) {
	if s.uploader == nil {
		return nil, errutil.Internal("object storage not configured")
	}

	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.KYCStatus == KYCApproved {
		return nil, errutil.Conflict("kyc already approved")
	}

	url, err := s.uploader.Upload(ctx, "kyc/"+userID, filename, contentType, r, size)
	if err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, userID, map[string]any{
		"kyc_document": url,
		"kyc_status":   KYCSubmitted,
		"updated_at":   time.Now(),
	}); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// DecideKYC records the admin decision on a submitted document.
func (s *Service) DecideKYC(ctx context.Context, userID string, approve bool) (*User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.KYCStatus != KYCSubmitted {
		return nil, errutil.Conflict("no submitted kyc document to decide")
	}

	next := KYCRejected
	if approve {
		next = KYCApproved
	}
	if err := s.users.Update(ctx, userID, map[string]any{"kyc_status": next, "updated_at": time.Now()}); err != nil {
		return nil, err
	}

	if s.enqueuer != nil {
		notification.Dispatch(s.enqueuer, notification.Payload{
			UserID: userID,
			Kind:   notification.KindKYCDecision,
			Title:  "KYC " + next,
		})
	}
	return s.Get(ctx, userID)
}

// SetBanned soft-deactivates (or restores) an account.
func (s *Service) SetBanned(ctx context.Context, userID string, banned bool) (*User, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, userID, map[string]any{"banned": banned, "updated_at": time.Now()}); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// List returns users for the admin console, optionally filtered by role.
func (s *Service) List(ctx context.Context, role string) ([]*User, error) {
	return s.users.Find(ctx, &User{Role: role}, option.WithOrder("created_at DESC"))
}

type ReviewInput struct {
	EventID    string `json:"event_id" binding:"required"`
	RevieweeID string `json:"-"`
	Rating     int    `json:"rating" binding:"required"`
	Comment    string `json:"comment"`
}

// SubmitReview files a 1-5 rating against a completed event. One review per
// (event, reviewer, reviewee).
func (s *Service) SubmitReview(ctx context.Context, reviewerID string, in ReviewInput) (*Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrBadRating
	}
	if in.RevieweeID == reviewerID {
		return nil, errutil.UnprocessableEntity("cannot review yourself")
	}

	ev, err := s.events.Get(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if ev.Status != event.StatusCompleted {
		return nil, errutil.Conflict("reviews open after the event completes")
	}

	if _, err := s.Get(ctx, in.RevieweeID); err != nil {
		return nil, err
	}

	existing, err := s.reviews.FindOne(ctx, &Review{
		EventID: in.EventID, ReviewerID: reviewerID, RevieweeID: in.RevieweeID,
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errutil.Conflict("review already submitted for this event")
	}

	review := &Review{
		ID:         s.node.Generate().String(),
		EventID:    in.EventID,
		ReviewerID: reviewerID,
		RevieweeID: in.RevieweeID,
		Rating:     in.Rating,
		Comment:    in.Comment,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}

	if s.chainEnabled(ctx) {
		if hash := s.chain.SubmitReview(ctx, in.RevieweeID, in.EventID, uint8(in.Rating)); hash != "" {
			if err := s.reviews.Update(ctx, review.ID, map[string]any{"chain_tx": hash}); err != nil {
				zap.L().Warn("failed to store review chain receipt", zap.Error(err))
			}
		}
	}

	return review, nil
}

// ReviewsFor lists reviews received by a user.
func (s *Service) ReviewsFor(ctx context.Context, userID string) ([]*Review, error) {
	return s.reviews.Find(ctx, &Review{RevieweeID: userID}, option.WithOrder("created_at DESC"))
}

// AverageRating is the mean received rating on the canonical 1-5 scale;
// zero when unrated.
func (s *Service) AverageRating(ctx context.Context, userID string) (float64, error) {
	var avg *float64
	err := s.db.WithContext(ctx).Model(&Review{}).
		Where("reviewee_id = ?", userID).
		Select("AVG(rating)").
		Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

// IsKYCVerified reports whether the user's identity has been approved.
func (s *Service) IsKYCVerified(ctx context.Context, userID string) (bool, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.KYCStatus == KYCApproved, nil
}

func (s *Service) chainEnabled(ctx context.Context) bool {
	return s.chain != nil && s.flags != nil && s.flags.IsEnabled(ctx, featureflags.ChainIntegration)
}
