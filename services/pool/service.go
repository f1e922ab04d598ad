package pool

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"gigbridge-platform/pkg/db/option"
	"gigbridge-platform/pkg/errutil"
	"gigbridge-platform/pkg/money"
	"gigbridge-platform/pkg/repository"
	"gigbridge-platform/pkg/task"
	"gigbridge-platform/services/event"
	"gigbridge-platform/services/notification"
)

var (
	ErrPoolFull       = errutil.Conflict("pool is already at capacity")
	ErrAlreadyApplied = errutil.Conflict("application already exists for this pool")
	ErrDecided        = errutil.Conflict("application already decided")
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	pools        repository.Repository[Pool]
	members      repository.Repository[Member]
	applications repository.Repository[Application]

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

		pools:        repository.ProvideStore[Pool](p.DB),
		members:      repository.ProvideStore[Member](p.DB),
		applications: repository.ProvideStore[Application](p.DB),

		events:   p.Events,
		enqueuer: p.Enqueuer,
	}
}

// Invite staffs an organizer onto a host's event by opening a worker pool.
func (s *Service) Invite(ctx context.Context, hostID, eventID, organizerID, name string, capacity int) (*Pool, error) {
	if capacity <= 0 {
		return nil, errutil.UnprocessableEntity("capacity must be positive")
	}

	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.HostID != hostID {
		return nil, errutil.Forbidden("event belongs to another host")
	}
	if ev.Status == event.StatusCompleted {
		return nil, errutil.Conflict("event already completed")
	}

	existing, err := s.pools.FindOne(ctx, &Pool{EventID: eventID, OrganizerID: organizerID})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errutil.Conflict("organizer already has a pool for this event")
	}

	pool := &Pool{
		ID:          s.node.Generate().String(),
		EventID:     eventID,
		OrganizerID: organizerID,
		Name:        name,
		Capacity:    capacity,
		Status:      StatusOpen,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.pools.WithTrx(tx).Create(ctx, pool); err != nil {
			return err
		}
		return s.events.AssignOrganizer(ctx, tx, eventID, organizerID)
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// Apply files a gig worker's application. One application per (gig, pool);
// the row is terminal once decided.
func (s *Service) Apply(ctx context.Context, gigID, poolID, proposedRate string) (*Application, error) {
	rate, err := money.ParsePositive(proposedRate)
	if err != nil {
		return nil, err
	}

	pool, err := s.pools.FindOne(ctx, &Pool{ID: poolID})
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, errutil.NotFound("pool not found")
	}
	if pool.Status == StatusArchived {
		return nil, errutil.Conflict("pool is archived")
	}

	existing, err := s.applications.FindOne(ctx, &Application{PoolID: poolID, GigID: gigID})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyApplied
	}

	app := &Application{
		ID:           s.node.Generate().String(),
		PoolID:       poolID,
		GigID:        gigID,
		ProposedRate: money.Format(rate),
		Status:       ApplicationPending,
	}
	if err := s.applications.Create(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// Decide accepts or rejects a pending application. Accepting appends the gig
// to the member list only while member_count < capacity; the capacity check
// and the membership write commit together.
func (s *Service) Decide(ctx context.Context, organizerID, applicationID string, accept bool) (*Application, error) {
	app, err := s.applications.FindOne(ctx, &Application{ID: applicationID})
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, errutil.NotFound("application not found")
	}

	pool, err := s.pools.FindOne(ctx, &Pool{ID: app.PoolID})
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, errutil.NotFound("pool not found")
	}
	if pool.OrganizerID != organizerID {
		return nil, errutil.Forbidden("pool belongs to another organizer")
	}
	if app.Status != ApplicationPending {
		return nil, ErrDecided
	}

	next := ApplicationRejected
	kind := notification.KindApplicationRejected
	if accept {
		next = ApplicationAccepted
		kind = notification.KindApplicationAccepted
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).Model(&Application{}).
			Where("id = ? AND status = ?", app.ID, ApplicationPending).
			Updates(map[string]any{"status": next, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrDecided
		}

		if !accept {
			return nil
		}

		// capacity guard and counter bump in one conditional statement
		res = tx.WithContext(ctx).Model(&Pool{}).
			Where("id = ? AND member_count < capacity AND status <> ?", pool.ID, StatusArchived).
			Updates(map[string]any{
				"member_count": gorm.Expr("member_count + 1"),
				"status":       StatusActive,
				"updated_at":   time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPoolFull
		}

		return s.members.WithTrx(tx).Create(ctx, &Member{
			ID:      s.node.Generate().String(),
			PoolID:  pool.ID,
			EventID: pool.EventID,
			GigID:   app.GigID,
			Rate:    app.ProposedRate,
		})
	})
	if err != nil {
		return nil, err
	}

	app.Status = next
	if s.enqueuer != nil {
		notification.Dispatch(s.enqueuer, notification.Payload{
			UserID:      app.GigID,
			Kind:        kind,
			Title:       "Application " + next,
			ReferenceID: pool.EventID,
		})
	}
	return app, nil
}

// ArchiveByEvent closes every pool on a completed event. Satisfies
// event.PoolArchiver and runs inside the event's transition transaction.
func (s *Service) ArchiveByEvent(ctx context.Context, tx *gorm.DB, eventID string) error {
	if tx == nil {
		tx = s.db
	}
	return tx.WithContext(ctx).Model(&Pool{}).
		Where("event_id = ? AND status <> ?", eventID, StatusArchived).
		Updates(map[string]any{"status": StatusArchived, "updated_at": time.Now()}).Error
}

// IsAcceptedMember reports whether the gig sits in any pool on the event.
func (s *Service) IsAcceptedMember(ctx context.Context, eventID, gigID string) (bool, error) {
	count, err := s.members.Count(ctx, &Member{EventID: eventID, GigID: gigID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MembersByEvent lists every accepted member across the event's pools.
func (s *Service) MembersByEvent(ctx context.Context, eventID string) ([]*Member, error) {
	return s.members.Find(ctx, &Member{EventID: eventID}, option.WithOrder("created_at ASC"))
}

func (s *Service) Get(ctx context.Context, id string) (*Pool, error) {
	pool, err := s.pools.FindOne(ctx, &Pool{ID: id})
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, errutil.NotFound("pool not found")
	}
	return pool, nil
}

func (s *Service) ListByEvent(ctx context.Context, eventID string) ([]*Pool, error) {
	return s.pools.Find(ctx, &Pool{EventID: eventID}, option.WithOrder("created_at ASC"))
}

func (s *Service) ListByOrganizer(ctx context.Context, organizerID string) ([]*Pool, error) {
	return s.pools.Find(ctx, &Pool{OrganizerID: organizerID}, option.WithOrder("created_at DESC"))
}

// PendingApplications lists undecided applications across the organizer's pools.
func (s *Service) PendingApplications(ctx context.Context, organizerID string) ([]*Application, error) {
	pools, err := s.ListByOrganizer(ctx, organizerID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(pools))
	for _, p := range pools {
		ids = append(ids, p.ID)
	}
	if len(ids) == 0 {
		return []*Application{}, nil
	}

	var apps []*Application
	if err := s.db.WithContext(ctx).
		Where("pool_id IN ? AND status = ?", ids, ApplicationPending).
		Order("created_at ASC").
		Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// ApplicationsByGig lists the gig worker's applications, newest first.
func (s *Service) ApplicationsByGig(ctx context.Context, gigID string) ([]*Application, error) {
	return s.applications.Find(ctx, &Application{GigID: gigID}, option.WithOrder("created_at DESC"))
}
