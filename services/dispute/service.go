package dispute

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"gigbridge-platform/pkg/db/option"
	"gigbridge-platform/pkg/errutil"
	"gigbridge-platform/pkg/repository"
	"gigbridge-platform/pkg/task"
	"gigbridge-platform/services/event"
	"gigbridge-platform/services/notification"
)

var (
	ErrAlreadyOpen = errutil.Conflict("an open dispute already exists for this event")
	ErrDecided     = errutil.Conflict("dispute already decided")
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	disputes repository.Repository[Dispute]

	events   *event.Service
	enqueuer task.Enqueuer
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Events   *event.Service
	Enqueuer task.Enqueuer `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,

		disputes: repository.ProvideStore[Dispute](p.DB),

		events:   p.Events,
		enqueuer: p.Enqueuer,
	}
}

type RaiseInput struct {
	EventID  string         `json:"event_id" binding:"required"`
	Reason   string         `json:"reason" binding:"required"`
	Evidence datatypes.JSON `json:"evidence"`
}

// Raise opens a dispute against an event. A raiser can hold at most one open
// dispute per event; a new one is allowed once the previous is decided.
func (s *Service) Raise(ctx context.Context, raisedBy string, in RaiseInput) (*Dispute, error) {
	if _, err := s.events.Get(ctx, in.EventID); err != nil {
		return nil, err
	}

	existing, err := s.disputes.FindOne(ctx, &Dispute{
		EventID: in.EventID, RaisedBy: raisedBy, Status: StatusOpen,
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyOpen
	}

	d := &Dispute{
		ID:       s.node.Generate().String(),
		EventID:  in.EventID,
		RaisedBy: raisedBy,
		Reason:   in.Reason,
		Evidence: in.Evidence,
		Status:   StatusOpen,
	}
	if err := s.disputes.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Decide closes an open dispute. The conditional update keeps concurrent
// admin decisions from both landing.
func (s *Service) Decide(ctx context.Context, adminID, disputeID string, resolve bool, resolution string) (*Dispute, error) {
	d, err := s.Get(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusOpen {
		return nil, ErrDecided
	}

	next := StatusRejected
	if resolve {
		next = StatusResolved
	}

	res := s.db.WithContext(ctx).Model(&Dispute{}).
		Where("id = ? AND status = ?", disputeID, StatusOpen).
		Updates(map[string]any{
			"status":     next,
			"resolution": resolution,
			"decided_by": adminID,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrDecided
	}

	if s.enqueuer != nil {
		notification.Dispatch(s.enqueuer, notification.Payload{
			UserID:      d.RaisedBy,
			Kind:        notification.KindDisputeResolved,
			Title:       "Dispute " + next,
			Body:        resolution,
			ReferenceID: d.ID,
		})
	}

	return s.Get(ctx, disputeID)
}

func (s *Service) Get(ctx context.Context, id string) (*Dispute, error) {
	d, err := s.disputes.FindOne(ctx, &Dispute{ID: id})
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errutil.NotFound("dispute not found")
	}
	return d, nil
}

// ByRaiser lists the caller's disputes, newest first.
func (s *Service) ByRaiser(ctx context.Context, raisedBy string) ([]*Dispute, error) {
	return s.disputes.Find(ctx, &Dispute{RaisedBy: raisedBy}, option.WithOrder("created_at DESC"))
}

// List is the admin view, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string) ([]*Dispute, error) {
	return s.disputes.Find(ctx, &Dispute{Status: status}, option.WithOrder("created_at ASC"))
}
