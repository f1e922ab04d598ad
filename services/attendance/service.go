package attendance

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gigbridge-platform/pkg/db/option"
	"gigbridge-platform/pkg/errutil"
	"gigbridge-platform/pkg/money"
	"gigbridge-platform/pkg/repository"
	"gigbridge-platform/pkg/task"
	"gigbridge-platform/pkg/taskname"
	"gigbridge-platform/services/escrow"
	"gigbridge-platform/services/event"
	"gigbridge-platform/services/pool"
)

var (
	ErrEventNotStarted  = errutil.UnprocessableEntity("event has not started yet")
	ErrEventEnded       = errutil.UnprocessableEntity("event has already ended")
	ErrAlreadyCompleted = errutil.Conflict("attendance already completed")
	ErrNotPoolMember    = errutil.Forbidden("gig is not an accepted member of this event")
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	attendances repository.Repository[Attendance]

	events   *event.Service
	pools    *pool.Service
	escrows  *escrow.Service
	enqueuer task.Enqueuer
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Events   *event.Service
	Pools    *pool.Service
	Escrows  *escrow.Service
	Enqueuer task.Enqueuer `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,

		attendances: repository.ProvideStore[Attendance](p.DB),

		events:   p.Events,
		pools:    p.Pools,
		escrows:  p.Escrows,
		enqueuer: p.Enqueuer,
	}
}

// CheckIn opens a work session. Requires accepted pool membership and an
// event running at now. Re-checking in against an open session is a no-op;
// a session closed after less than five worked minutes is reopened.
func (s *Service) CheckIn(ctx context.Context, gigID, eventID string, now time.Time) (*Attendance, error) {
	member, err := s.pools.IsAcceptedMember(ctx, eventID, gigID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotPoolMember
	}

	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	switch event.Reconcile(ev, now) {
	case event.StatusPublished:
		return nil, ErrEventNotStarted
	case event.StatusCompleted:
		return nil, ErrEventEnded
	}

	existing, err := s.latest(ctx, eventID, gigID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == StatusCheckedIn {
			return existing, nil
		}
		if existing.CheckOut != nil && existing.CheckOut.Sub(existing.CheckIn) < reopenWindow {
			values := map[string]any{
				"check_out":  nil,
				"hours":      money.Format(money.Zero),
				"status":     StatusCheckedIn,
				"updated_at": time.Now(),
			}
			if err := s.attendances.Update(ctx, existing.ID, values); err != nil {
				return nil, err
			}
			existing.CheckOut = nil
			existing.Hours = money.Format(money.Zero)
			existing.Status = StatusCheckedIn
			return existing, nil
		}
		return nil, ErrAlreadyCompleted
	}

	att := &Attendance{
		ID:      s.node.Generate().String(),
		EventID: eventID,
		GigID:   gigID,
		CheckIn: now,
		Hours:   money.Format(money.Zero),
		Status:  StatusCheckedIn,
	}
	if err := s.attendances.Create(ctx, att); err != nil {
		// a concurrent check-in won the unique (event_id, gig_id) race;
		// serve its session instead of surfacing the constraint error
		winner, ferr := s.latest(ctx, eventID, gigID)
		if ferr == nil && winner != nil && winner.Status == StatusCheckedIn {
			return winner, nil
		}
		return nil, err
	}

	// first activity moves the escrow along; idempotent either way
	if err := s.escrows.MarkInProgress(ctx, eventID); err != nil {
		zap.L().Warn("failed to advance escrow on check-in", zap.String("event_id", eventID), zap.Error(err))
	}

	return att, nil
}

// CheckOut closes the open session and computes worked hours. Idempotent: a
// second checkout returns the completed row unchanged. Checkouts after the
// event end clamp to the end date.
func (s *Service) CheckOut(ctx context.Context, gigID, eventID string, now time.Time) (*Attendance, error) {
	att, err := s.latest(ctx, eventID, gigID)
	if err != nil {
		return nil, err
	}
	if att == nil {
		return nil, errutil.NotFound("no attendance session for this event")
	}
	if att.Status == StatusCompleted {
		return att, nil
	}

	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	out := now
	if out.After(ev.EndDate) {
		out = ev.EndDate
	}
	if out.Before(att.CheckIn) {
		out = att.CheckIn
	}

	if err := s.close(ctx, att, out); err != nil {
		return nil, err
	}

	s.enqueueBadgeRecompute(gigID)
	return att, nil
}

func (s *Service) close(ctx context.Context, att *Attendance, out time.Time) error {
	hours := money.Format(money.HoursBetween(att.CheckIn, out))
	res := s.db.WithContext(ctx).Model(&Attendance{}).
		Where("id = ? AND status = ?", att.ID, StatusCheckedIn).
		Updates(map[string]any{
			"check_out":  out,
			"hours":      hours,
			"status":     StatusCompleted,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	att.CheckOut = &out
	att.Hours = hours
	att.Status = StatusCompleted
	return nil
}

// History lists the gig's sessions, force-closing any left open past their
// event's end. The sweep applies the same rule, so both paths agree.
func (s *Service) History(ctx context.Context, gigID string) ([]*Attendance, error) {
	rows, err := s.attendances.Find(ctx, &Attendance{GigID: gigID}, option.WithOrder("check_in DESC"))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, att := range rows {
		if att.Status != StatusCheckedIn {
			continue
		}
		if err := s.autoCloseOne(ctx, att, now); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (s *Service) autoCloseOne(ctx context.Context, att *Attendance, now time.Time) error {
	ev, err := s.events.Get(ctx, att.EventID)
	if err != nil {
		return err
	}
	if now.Before(ev.EndDate) {
		return nil
	}
	if err := s.close(ctx, att, ev.EndDate); err != nil {
		return err
	}
	s.enqueueBadgeRecompute(att.GigID)
	return nil
}

// AutoCloseAll sweeps every open session whose event has ended.
func (s *Service) AutoCloseAll(ctx context.Context, now time.Time) error {
	open, err := s.attendances.Find(ctx, &Attendance{Status: StatusCheckedIn})
	if err != nil {
		return err
	}

	for _, att := range open {
		if err := s.autoCloseOne(ctx, att, now); err != nil {
			zap.L().Error("attendance auto-close failed", zap.String("attendance_id", att.ID), zap.Error(err))
			return err
		}
	}
	return nil
}

// ByEvent lists sessions on an event, for organizers and hosts.
func (s *Service) ByEvent(ctx context.Context, eventID string) ([]*Attendance, error) {
	return s.attendances.Find(ctx, &Attendance{EventID: eventID}, option.WithOrder("check_in ASC"))
}

// CompletedCount is the number of distinct events the gig finished a session
// on; drives badge thresholds.
func (s *Service) CompletedCount(ctx context.Context, gigID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Attendance{}).
		Where("gig_id = ? AND status = ?", gigID, StatusCompleted).
		Distinct("event_id").
		Count(&count).Error
	return count, err
}

func (s *Service) latest(ctx context.Context, eventID, gigID string) (*Attendance, error) {
	return s.attendances.FindOne(ctx, &Attendance{EventID: eventID, GigID: gigID}, option.WithOrder("created_at DESC"))
}

type badgeRecomputePayload struct {
	UserID string `json:"user_id"`
}

func (s *Service) enqueueBadgeRecompute(gigID string) {
	if s.enqueuer == nil {
		return
	}
	payload, err := json.Marshal(badgeRecomputePayload{UserID: gigID})
	if err != nil {
		return
	}
	if _, err := s.enqueuer.Enqueue(asynq.NewTask(taskname.BadgeRecompute, payload)); err != nil {
		zap.L().Warn("failed to enqueue badge recompute", zap.String("gig_id", gigID), zap.Error(err))
	}
}
