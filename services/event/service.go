package event

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"gigbridge-platform/pkg/db/option"
	"gigbridge-platform/pkg/errutil"
	"gigbridge-platform/pkg/money"
	"gigbridge-platform/pkg/repository"
)

// PoolArchiver archives the worker pools attached to a completed event.
// Implemented by the pool service and wired through fx so the cascade stays
// in one transaction with the status change.
type PoolArchiver interface {
	ArchiveByEvent(ctx context.Context, tx *gorm.DB, eventID string) error
}

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	events   repository.Repository[Event]
	archiver PoolArchiver
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		events: repository.ProvideStore[Event](p.DB),
	}
}

// SetArchiver wires the pool cascade in after construction; the pool service
// depends on this service, so the hook cannot be a constructor argument.
func (s *Service) SetArchiver(a PoolArchiver) {
	s.archiver = a
}

type CreateInput struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Budget      string    `json:"budget" binding:"required"`
	StartDate   time.Time `json:"start_date" binding:"required"`
	EndDate     time.Time `json:"end_date" binding:"required"`
}

func (s *Service) Create(ctx context.Context, hostID string, in CreateInput) (*Event, error) {
	if !in.StartDate.Before(in.EndDate) {
		return nil, errutil.UnprocessableEntity("start date must be before end date")
	}

	budget, err := money.ParsePositive(in.Budget)
	if err != nil {
		return nil, err
	}

	id := s.node.Generate().String()
	ev := &Event{
		ID:          id,
		HostID:      hostID,
		Title:       in.Title,
		Slug:        fmt.Sprintf("%s-%s", slug.Make(in.Title), id),
		Description: in.Description,
		Address:     in.Address,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Budget:      money.Format(budget),
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      StatusPublished,
	}

	if err := s.events.Create(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

type UpdateInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Address     *string    `json:"address"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	Budget      *string    `json:"budget"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

func (s *Service) Update(ctx context.Context, hostID, id string, in UpdateInput) (*Event, error) {
	ev, err := s.owned(ctx, hostID, id)
	if err != nil {
		return nil, err
	}
	if ev.Status != StatusPublished {
		return nil, errutil.Conflict("only published events can be edited")
	}

	values := map[string]any{}
	if in.Title != nil {
		values["title"] = *in.Title
	}
	if in.Description != nil {
		values["description"] = *in.Description
	}
	if in.Address != nil {
		values["address"] = *in.Address
	}
	if in.Latitude != nil {
		values["latitude"] = *in.Latitude
	}
	if in.Longitude != nil {
		values["longitude"] = *in.Longitude
	}
	if in.Budget != nil {
		budget, err := money.ParsePositive(*in.Budget)
		if err != nil {
			return nil, err
		}
		values["budget"] = money.Format(budget)
	}

	start, end := ev.StartDate, ev.EndDate
	if in.StartDate != nil {
		start = *in.StartDate
		values["start_date"] = start
	}
	if in.EndDate != nil {
		end = *in.EndDate
		values["end_date"] = end
	}
	if !start.Before(end) {
		return nil, errutil.UnprocessableEntity("start date must be before end date")
	}

	if len(values) == 0 {
		return ev, nil
	}
	values["updated_at"] = time.Now()

	if err := s.events.Update(ctx, id, values); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Get returns the event after lazily reconciling its status against now.
func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	ev, err := s.events.FindOne(ctx, &Event{ID: id})
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, errutil.NotFound("event not found")
	}
	if err := s.reconcilePersist(ctx, ev, time.Now()); err != nil {
		return nil, err
	}
	return ev, nil
}

type Filter struct {
	HostID      string
	OrganizerID string
	Status      string
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Event, error) {
	events, err := s.events.Find(ctx, &Event{
		HostID:      f.HostID,
		OrganizerID: f.OrganizerID,
		Status:      f.Status,
	}, option.WithOrder("start_date ASC"))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, ev := range events {
		if err := s.reconcilePersist(ctx, ev, now); err != nil {
			return nil, err
		}
	}
	return events, nil
}

// Complete lets the host close an event early. Forward-only; completing a
// completed event is a conflict.
func (s *Service) Complete(ctx context.Context, hostID, id string) (*Event, error) {
	ev, err := s.owned(ctx, hostID, id)
	if err != nil {
		return nil, err
	}
	if ev.Status == StatusCompleted {
		return nil, errutil.Conflict("event already completed")
	}

	if err := s.transition(ctx, ev, StatusCompleted); err != nil {
		return nil, err
	}
	return ev, nil
}

func (s *Service) owned(ctx context.Context, hostID, id string) (*Event, error) {
	ev, err := s.events.FindOne(ctx, &Event{ID: id})
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, errutil.NotFound("event not found")
	}
	if ev.HostID != hostID {
		return nil, errutil.Forbidden("event belongs to another host")
	}
	return ev, nil
}

// reconcilePersist applies Reconcile and persists the transition when it
// changed anything. The write is conditional on the previous status so
// concurrent reconcilers collapse into one transition.
func (s *Service) reconcilePersist(ctx context.Context, ev *Event, now time.Time) error {
	next := Reconcile(ev, now)
	if next == ev.Status {
		return nil
	}
	return s.transition(ctx, ev, next)
}

func (s *Service) transition(ctx context.Context, ev *Event, next string) error {
	prev := ev.Status
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).Model(&Event{}).
			Where("id = ? AND status = ?", ev.ID, prev).
			Updates(map[string]any{"status": next, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// someone else already moved it
			return nil
		}
		if next == StatusCompleted && s.archiver != nil {
			return s.archiver.ArchiveByEvent(ctx, tx, ev.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	ev.Status = next
	return nil
}

// AssignOrganizer records the organizer staffed onto the event.
func (s *Service) AssignOrganizer(ctx context.Context, tx *gorm.DB, eventID, organizerID string) error {
	if tx == nil {
		tx = s.db
	}
	return tx.WithContext(ctx).Model(&Event{}).
		Where("id = ?", eventID).
		Updates(map[string]any{"organizer_id": organizerID, "updated_at": time.Now()}).Error
}

// ReconcileOne reconciles a single event by id; used by the per-event task.
func (s *Service) ReconcileOne(ctx context.Context, id string, now time.Time) error {
	ev, err := s.events.FindOne(ctx, &Event{ID: id})
	if err != nil {
		return err
	}
	if ev == nil {
		return nil
	}
	return s.reconcilePersist(ctx, ev, now)
}

// ReconcileAll sweeps every non-terminal event with bounded concurrency.
func (s *Service) ReconcileAll(ctx context.Context, now time.Time) error {
	var events []*Event
	if err := s.db.WithContext(ctx).
		Where("status <> ?", StatusCompleted).
		Find(&events).Error; err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, ev := range events {
		ev := ev
		g.Go(func() error {
			if err := s.reconcilePersist(ctx, ev, now); err != nil {
				zap.L().Error("event reconcile failed", zap.String("event_id", ev.ID), zap.Error(err))
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
