package badge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gigbridge-platform/pkg/celengine"
	"gigbridge-platform/pkg/chain"
	"gigbridge-platform/pkg/db/option"
	"gigbridge-platform/pkg/errutil"
	"gigbridge-platform/pkg/featureflags"
	"gigbridge-platform/pkg/repository"
	"gigbridge-platform/pkg/task"
	"gigbridge-platform/services/attendance"
	"gigbridge-platform/services/notification"
	"gigbridge-platform/services/user"
)

const (
	leaderboardKey = "badge:leaderboard"
	leaderboardTTL = 30 * time.Second

	criteriaEnvKey = "badge:criteria"
)

// AttendanceStats is the slice of the attendance service badge awarding reads.
type AttendanceStats interface {
	CompletedCount(ctx context.Context, gigID string) (int64, error)
}

// UserDirectory is the slice of the user service badge awarding reads.
type UserDirectory interface {
	Get(ctx context.Context, id string) (*user.User, error)
	IsKYCVerified(ctx context.Context, id string) (bool, error)
	AverageRating(ctx context.Context, id string) (float64, error)
}

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	badges repository.Repository[Badge]
	awards repository.Repository[UserBadge]

	stats AttendanceStats
	users UserDirectory

	rdb      *redis.Client
	flags    featureflags.FeatureFlag
	chain    *chain.Client
	enqueuer task.Enqueuer
}

type ServiceParams struct {
	fx.In
	DB         *gorm.DB
	Node       *snowflake.Node
	Attendance *attendance.Service
	Users      *user.Service
	Redis      *redis.Client            `optional:"true"`
	Flags      featureflags.FeatureFlag `optional:"true"`
	Chain      *chain.Client            `optional:"true"`
	Enqueuer   task.Enqueuer            `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,

		badges: repository.ProvideStore[Badge](p.DB),
		awards: repository.ProvideStore[UserBadge](p.DB),

		stats: p.Attendance,
		users: p.Users,

		rdb:      p.Redis,
		flags:    p.Flags,
		chain:    p.Chain,
		enqueuer: p.Enqueuer,
	}
}

type BadgeInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IconURL     string `json:"icon_url"`
	MinEvents   int64  `json:"min_events"`
	KYCRequired bool   `json:"kyc_required"`
	Criteria    string `json:"criteria"`
}

// sampleAttrs is only used to type-check criteria expressions at save time.
var sampleAttrs = map[string]interface{}{
	"completed_events": int64(0),
	"kyc_verified":     false,
	"rating":           float64(0),
}

func validateCriteria(expr string) error {
	if expr == "" {
		return nil
	}
	if _, err := celengine.EvaluateBool(criteriaEnvKey, expr, sampleAttrs); err != nil {
		return errutil.UnprocessableEntity("invalid criteria expression", errutil.WithErr(err))
	}
	return nil
}

func (s *Service) CreateBadge(ctx context.Context, in BadgeInput) (*Badge, error) {
	if in.MinEvents < 0 {
		return nil, errutil.UnprocessableEntity("min_events must not be negative")
	}
	if err := validateCriteria(in.Criteria); err != nil {
		return nil, err
	}

	if existing, err := s.badges.FindOne(ctx, &Badge{Name: in.Name}); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, errutil.Conflict("badge name already exists")
	}

	b := &Badge{
		ID:          s.node.Generate().String(),
		Name:        in.Name,
		Description: in.Description,
		IconURL:     in.IconURL,
		MinEvents:   in.MinEvents,
		KYCRequired: in.KYCRequired,
		Criteria:    in.Criteria,
	}
	if err := s.badges.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

type UpdateBadgeInput struct {
	Description *string `json:"description"`
	IconURL     *string `json:"icon_url"`
	MinEvents   *int64  `json:"min_events"`
	KYCRequired *bool   `json:"kyc_required"`
	Criteria    *string `json:"criteria"`
}

func (s *Service) UpdateBadge(ctx context.Context, id string, in UpdateBadgeInput) (*Badge, error) {
	if _, err := s.GetBadge(ctx, id); err != nil {
		return nil, err
	}

	values := map[string]any{}
	if in.Description != nil {
		values["description"] = *in.Description
	}
	if in.IconURL != nil {
		values["icon_url"] = *in.IconURL
	}
	if in.MinEvents != nil {
		if *in.MinEvents < 0 {
			return nil, errutil.UnprocessableEntity("min_events must not be negative")
		}
		values["min_events"] = *in.MinEvents
	}
	if in.KYCRequired != nil {
		values["kyc_required"] = *in.KYCRequired
	}
	if in.Criteria != nil {
		if err := validateCriteria(*in.Criteria); err != nil {
			return nil, err
		}
		values["criteria"] = *in.Criteria
	}
	if len(values) == 0 {
		return s.GetBadge(ctx, id)
	}
	values["updated_at"] = time.Now()

	if err := s.badges.Update(ctx, id, values); err != nil {
		return nil, err
	}
	return s.GetBadge(ctx, id)
}

// DeleteBadge removes the badge definition together with every award of it.
func (s *Service) DeleteBadge(ctx context.Context, id string) error {
	if _, err := s.GetBadge(ctx, id); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("badge_id = ?", id).Delete(&UserBadge{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Badge{ID: id}).Error
	})
	if err != nil {
		return err
	}

	s.invalidateLeaderboard(ctx)
	return nil
}

func (s *Service) GetBadge(ctx context.Context, id string) (*Badge, error) {
	b, err := s.badges.FindOne(ctx, &Badge{ID: id})
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, errutil.NotFound("badge not found")
	}
	return b, nil
}

func (s *Service) ListBadges(ctx context.Context) ([]*Badge, error) {
	return s.badges.Find(ctx, nil, option.WithOrder("min_events ASC, name ASC"))
}

// BadgesOf lists a user's awards, newest first.
func (s *Service) BadgesOf(ctx context.Context, userID string) ([]*UserBadge, error) {
	return s.awards.Find(ctx, &UserBadge{UserID: userID},
		option.WithPreload("Badge"),
		option.WithOrder("awarded_at DESC"),
	)
}

// Recompute re-evaluates every badge for the user and awards the ones newly
// earned. Awards are additive; nothing is ever taken away.
func (s *Service) Recompute(ctx context.Context, userID string) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}

	completed, err := s.stats.CompletedCount(ctx, userID)
	if err != nil {
		return err
	}
	verified, err := s.users.IsKYCVerified(ctx, userID)
	if err != nil {
		return err
	}
	rating, err := s.users.AverageRating(ctx, userID)
	if err != nil {
		return err
	}

	attrs := map[string]interface{}{
		"completed_events": completed,
		"kyc_verified":     verified,
		"rating":           rating,
	}

	badges, err := s.badges.Find(ctx, nil)
	if err != nil {
		return err
	}

	awarded := false
	for _, b := range badges {
		if completed < b.MinEvents {
			continue
		}
		if b.KYCRequired && !verified {
			continue
		}
		if b.Criteria != "" {
			ok, err := celengine.EvaluateBool(criteriaEnvKey, b.Criteria, attrs)
			if err != nil {
				zap.L().Warn("badge criteria evaluation failed",
					zap.String("badge_id", b.ID), zap.Error(err))
				continue
			}
			if !ok {
				continue
			}
		}

		fresh, err := s.award(ctx, u, b)
		if err != nil {
			return err
		}
		awarded = awarded || fresh
	}

	if awarded {
		s.invalidateLeaderboard(ctx)
	}
	return nil
}

// award inserts the (user, badge) row if absent. The unique index makes the
// insert the arbiter under concurrent recomputes.
func (s *Service) award(ctx context.Context, u *user.User, b *Badge) (bool, error) {
	ub := &UserBadge{
		ID:        s.node.Generate().String(),
		UserID:    u.ID,
		BadgeID:   b.ID,
		AwardedAt: time.Now(),
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
		DoNothing: true,
	}).Create(ub)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if s.enqueuer != nil {
		notification.Dispatch(s.enqueuer, notification.Payload{
			UserID:      u.ID,
			Kind:        notification.KindBadgeAwarded,
			Title:       "Badge earned: " + b.Name,
			Body:        b.Description,
			ReferenceID: b.ID,
		})
	}

	if s.chainEnabled(ctx) {
		if hash := s.chain.MintBadge(ctx, u.ID, b.Name); hash != "" {
			if err := s.awards.Update(ctx, ub.ID, map[string]any{"chain_tx": hash}); err != nil {
				zap.L().Warn("failed to store badge chain receipt", zap.Error(err))
			}
		}
	}

	return true, nil
}

// Leaderboard ranks users by badge count; ties break on who got there first.
// Served from a short-lived redis cache when one is configured.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, leaderboardKey).Bytes(); err == nil {
			var cached []*Entry
			if json.Unmarshal(raw, &cached) == nil && len(cached) >= limit {
				return cached[:limit], nil
			}
		}
	}

	type row struct {
		UserID     string
		BadgeCount int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&UserBadge{}).
		Select("user_id, COUNT(*) AS badge_count").
		Group("user_id").
		Order("badge_count DESC, MIN(awarded_at) ASC, user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, len(rows))
	for _, r := range rows {
		e := &Entry{UserID: r.UserID, BadgeCount: r.BadgeCount}
		if u, err := s.users.Get(ctx, r.UserID); err == nil {
			e.Name = u.Name
		}
		if rating, err := s.users.AverageRating(ctx, r.UserID); err == nil {
			e.Rating = rating
		}
		entries = append(entries, e)
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(entries); err == nil {
			if err := s.rdb.Set(ctx, leaderboardKey, raw, leaderboardTTL).Err(); err != nil {
				zap.L().Warn("failed to cache leaderboard", zap.Error(err))
			}
		}
	}
	return entries, nil
}

func (s *Service) invalidateLeaderboard(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, leaderboardKey).Err(); err != nil {
		zap.L().Warn("failed to invalidate leaderboard cache", zap.Error(err))
	}
}

func (s *Service) chainEnabled(ctx context.Context) bool {
	return s.chain != nil && s.flags != nil && s.flags.IsEnabled(ctx, featureflags.ChainIntegration)
}
