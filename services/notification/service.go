package notification

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"gigbridge-platform/pkg/db/option"
	"gigbridge-platform/pkg/errutil"
	"gigbridge-platform/pkg/repository"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	notifications repository.Repository[Notification]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:            p.DB,
		node:          p.Node,
		notifications: repository.ProvideStore[Notification](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, p Payload) (*Notification, error) {
	n := &Notification{
		ID:          s.node.Generate().String(),
		UserID:      p.UserID,
		Kind:        p.Kind,
		Title:       p.Title,
		Body:        p.Body,
		ReferenceID: p.ReferenceID,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]*Notification, error) {
	return s.notifications.Find(ctx, &Notification{UserID: userID}, option.WithOrder("created_at DESC"), option.WithLimit(100))
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("notification not found")
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
}
