package escrow

import (
	"context"
	"math/big"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gigbridge-platform/pkg/chain"
	"gigbridge-platform/pkg/db/option"
	"gigbridge-platform/pkg/errutil"
	"gigbridge-platform/pkg/featureflags"
	"gigbridge-platform/pkg/money"
	"gigbridge-platform/pkg/payment"
	"gigbridge-platform/pkg/repository"
	"gigbridge-platform/pkg/sequence"
	"gigbridge-platform/pkg/task"
	"gigbridge-platform/services/event"
	"gigbridge-platform/services/notification"
	"gigbridge-platform/services/pool"
	"gigbridge-platform/services/wallet"
)

// PlatformAccount labels the platform share on payout rows; it has no wallet.
const PlatformAccount = "platform"

var (
	ErrAlreadyReleased = errutil.Conflict("escrow already released")
	ErrBadSplit        = errutil.UnprocessableEntity("organizer, gigs and platform percentages must sum to 100")
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	contracts repository.Repository[Contract]
	payments  repository.Repository[Payment]

	events   *event.Service
	pools    *pool.Service
	wallets  *wallet.Service
	gateway  payment.Gateway
	seq      sequence.Generator
	flags    featureflags.FeatureFlag
	chain    *chain.Client
	enqueuer task.Enqueuer
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Events   *event.Service
	Pools    *pool.Service
	Wallets  *wallet.Service
	Gateway  payment.Gateway
	Sequence sequence.Generator
	Flags    featureflags.FeatureFlag `optional:"true"`
	Chain    *chain.Client            `optional:"true"`
	Enqueuer task.Enqueuer            `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,

		contracts: repository.ProvideStore[Contract](p.DB),
		payments:  repository.ProvideStore[Payment](p.DB),

		events:   p.Events,
		pools:    p.Pools,
		wallets:  p.Wallets,
		gateway:  p.Gateway,
		seq:      p.Sequence,
		flags:    p.Flags,
		chain:    p.Chain,
		enqueuer: p.Enqueuer,
	}
}

type FundInput struct {
	EventID      string `json:"event_id" binding:"required"`
	Amount       string `json:"amount" binding:"required"`
	OrganizerPct int64  `json:"organizer_pct"`
	GigsPct      int64  `json:"gigs_pct"`
	PlatformPct  int64  `json:"platform_pct"`
	Method       string `json:"method"`
	Hold         bool   `json:"hold"`
}

// Fund opens the escrow for an event: one gateway order, then the contract
// and its funding payment committed together.
func (s *Service) Fund(ctx context.Context, hostID string, in FundInput) (*Contract, error) {
	total, err := money.ParsePositive(in.Amount)
	if err != nil {
		return nil, err
	}
	if in.OrganizerPct < 0 || in.GigsPct < 0 || in.PlatformPct < 0 ||
		in.OrganizerPct+in.GigsPct+in.PlatformPct != 100 {
		return nil, ErrBadSplit
	}

	ev, err := s.events.Get(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if ev.HostID != hostID {
		return nil, errutil.Forbidden("event belongs to another host")
	}
	if ev.Status == event.StatusCompleted {
		return nil, errutil.Conflict("event already completed")
	}

	existing, err := s.contracts.FindOne(ctx, &Contract{EventID: in.EventID})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errutil.Conflict("escrow already exists for this event")
	}

	order, err := s.gateway.CreateOrder(ctx, money.Format(total), "INR", "escrow-"+in.EventID)
	if err != nil {
		return nil, err
	}

	status := StatusFunded
	if in.Hold {
		status = StatusInProgress
	}

	contract := &Contract{
		ID:           s.node.Generate().String(),
		EventID:      in.EventID,
		HostID:       hostID,
		OrganizerID:  ev.OrganizerID,
		Total:        money.Format(total),
		OrganizerPct: in.OrganizerPct,
		GigsPct:      in.GigsPct,
		PlatformPct:  in.PlatformPct,
		Status:       status,
		OrderID:      order.ID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.contracts.WithTrx(tx).Create(ctx, contract); err != nil {
			return err
		}
		return s.payments.WithTrx(tx).Create(ctx, &Payment{
			ID:          s.node.Generate().String(),
			ContractID:  contract.ID,
			EventID:     in.EventID,
			PayerID:     hostID,
			PayeeID:     PlatformAccount,
			Amount:      money.Format(total),
			Method:      in.Method,
			Kind:        PaymentFund,
			Status:      PaymentCreated,
			ReferenceID: order.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.mirrorEscrow(ctx, contract, total)
	return contract, nil
}

// ConfirmFunding validates the gateway callback and marks the funding payment
// captured.
func (s *Service) ConfirmFunding(ctx context.Context, hostID, orderID, paymentID, signature string) (*Contract, error) {
	if !s.gateway.VerifySignature(orderID, paymentID, signature) {
		return nil, errutil.UnprocessableEntity("invalid payment signature")
	}

	contract, err := s.contracts.FindOne(ctx, &Contract{HostID: hostID, OrderID: orderID})
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, errutil.NotFound("escrow not found for order")
	}

	err = s.db.WithContext(ctx).Model(&Payment{}).
		Where("contract_id = ? AND kind = ? AND status = ?", contract.ID, PaymentFund, PaymentCreated).
		Updates(map[string]any{"status": PaymentCaptured, "reference_id": paymentID, "updated_at": time.Now()}).Error
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// MarkInProgress moves a funded escrow to in_progress. Idempotent; called on
// the event's first check-in.
func (s *Service) MarkInProgress(ctx context.Context, eventID string) error {
	return s.db.WithContext(ctx).Model(&Contract{}).
		Where("event_id = ? AND status = ?", eventID, StatusFunded).
		Updates(map[string]any{"status": StatusInProgress, "updated_at": time.Now()}).Error
}

// Release pays the escrow out: the organizer share to the organizer wallet,
// the gigs share split equally across the event's pool members, the platform
// share retained. All wallet credits, payout rows and the status flip commit
// in one transaction; a second release is a conflict.
func (s *Service) Release(ctx context.Context, hostID, eventID string) (*Contract, error) {
	contract, err := s.contracts.FindOne(ctx, &Contract{EventID: eventID})
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, errutil.NotFound("escrow not found")
	}
	if contract.HostID != hostID {
		return nil, errutil.Forbidden("escrow belongs to another host")
	}
	if contract.Status == StatusReleased {
		return nil, ErrAlreadyReleased
	}

	total, err := money.Parse(contract.Total)
	if err != nil {
		return nil, err
	}

	members, err := s.pools.MembersByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	// platform last so it absorbs the rounding remainder
	shares := money.SplitPercent(total, contract.OrganizerPct, contract.GigsPct, contract.PlatformPct)
	organizerShare, gigsShare, platformShare := shares[0], shares[1], shares[2]

	receipt, err := s.seq.NextReceiptCode(ctx)
	if err != nil {
		return nil, err
	}

	type payout struct {
		payee  string
		amount decimal.Decimal
	}
	payouts := make([]payout, 0, len(members)+2)

	if organizerShare.IsPositive() {
		// the contract snapshots the organizer at funding time; an event
		// staffed afterwards has its organizer only on the event row
		organizerID := contract.OrganizerID
		if organizerID == "" {
			ev, err := s.events.Get(ctx, eventID)
			if err != nil {
				return nil, err
			}
			organizerID = ev.OrganizerID
		}
		if organizerID == "" {
			organizerID = contract.HostID
		}
		payouts = append(payouts, payout{organizerID, organizerShare})
	}
	if gigsShare.IsPositive() {
		if len(members) == 0 {
			// nobody worked the event, the gigs share flows back to the host
			payouts = append(payouts, payout{contract.HostID, gigsShare})
		} else {
			parts := money.SplitEqual(gigsShare, len(members))
			for i, m := range members {
				payouts = append(payouts, payout{m.GigID, parts[i]})
			}
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).Model(&Contract{}).
			Where("id = ? AND status IN ?", contract.ID, []string{StatusFunded, StatusInProgress}).
			Updates(map[string]any{"status": StatusReleased, "receipt_code": receipt, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyReleased
		}

		for _, p := range payouts {
			code, err := s.seq.NextPayoutCode(ctx)
			if err != nil {
				return err
			}
			if err := s.wallets.CreditTx(ctx, tx, p.payee, p.amount, wallet.EntryPayout, receipt, "escrow payout "+code); err != nil {
				return err
			}
			if err := s.payments.WithTrx(tx).Create(ctx, &Payment{
				ID:          s.node.Generate().String(),
				ContractID:  contract.ID,
				EventID:     eventID,
				PayerID:     PlatformAccount,
				PayeeID:     p.payee,
				Amount:      money.Format(p.amount),
				Kind:        PaymentPayout,
				Status:      PaymentPaid,
				ReferenceID: code,
			}); err != nil {
				return err
			}
		}

		// platform share retained, recorded for the books
		if platformShare.IsPositive() {
			return s.payments.WithTrx(tx).Create(ctx, &Payment{
				ID:          s.node.Generate().String(),
				ContractID:  contract.ID,
				EventID:     eventID,
				PayerID:     PlatformAccount,
				PayeeID:     PlatformAccount,
				Amount:      money.Format(platformShare),
				Kind:        PaymentPayout,
				Status:      PaymentPaid,
				ReferenceID: receipt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	contract.Status = StatusReleased
	contract.ReceiptCode = receipt

	if s.enqueuer != nil {
		for _, p := range payouts {
			notification.Dispatch(s.enqueuer, notification.Payload{
				UserID:      p.payee,
				Kind:        notification.KindEscrowReleased,
				Title:       "Escrow released",
				Body:        money.Format(p.amount) + " credited to your wallet",
				ReferenceID: eventID,
			})
		}
	}

	return contract, nil
}

// GetByEvent returns the contract for an event.
func (s *Service) GetByEvent(ctx context.Context, eventID string) (*Contract, error) {
	contract, err := s.contracts.FindOne(ctx, &Contract{EventID: eventID})
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, errutil.NotFound("escrow not found")
	}
	return contract, nil
}

// PaymentsByEvent lists the money movements on an event's escrow.
func (s *Service) PaymentsByEvent(ctx context.Context, eventID string) ([]*Payment, error) {
	return s.payments.Find(ctx, &Payment{EventID: eventID}, option.WithOrder("created_at ASC"))
}

func (s *Service) mirrorEscrow(ctx context.Context, contract *Contract, total decimal.Decimal) {
	if s.chain == nil || s.flags == nil || !s.flags.IsEnabled(ctx, featureflags.ChainIntegration) {
		return
	}

	minor := total.Mul(decimal.NewFromInt(100)).IntPart()
	hash := s.chain.CreateEscrow(ctx, contract.EventID, big.NewInt(minor))
	if hash == "" {
		return
	}

	if err := s.contracts.Update(ctx, contract.ID, map[string]any{"chain_tx": hash}); err != nil {
		zap.L().Warn("failed to store chain receipt", zap.String("contract_id", contract.ID), zap.Error(err))
		return
	}
	contract.ChainTx = hash
}
