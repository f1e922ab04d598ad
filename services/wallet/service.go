package wallet

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gigbridge-platform/pkg/config"
	"gigbridge-platform/pkg/db/option"
	"gigbridge-platform/pkg/errutil"
	"gigbridge-platform/pkg/money"
	"gigbridge-platform/pkg/payment"
	"gigbridge-platform/pkg/repository"
)

var (
	ErrInsufficientBalance = errutil.UnprocessableEntity("insufficient wallet balance")
	ErrInvalidAmount       = money.ErrInvalidAmount
)

// casAttempts bounds the optimistic retry loop on balance updates.
const casAttempts = 3

type Service struct {
	db      *gorm.DB
	node    *snowflake.Node
	config  *config.Config
	gateway payment.Gateway

	wallets repository.Repository[Wallet]
	entries repository.Repository[Entry]
	topups  repository.Repository[TopupOrder]
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Node    *snowflake.Node
	Config  *config.Config
	Gateway payment.Gateway
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		node:    p.Node,
		config:  p.Config,
		gateway: p.Gateway,

		wallets: repository.ProvideStore[Wallet](p.DB),
		entries: repository.ProvideStore[Entry](p.DB),
		topups:  repository.ProvideStore[TopupOrder](p.DB),
	}
}

// Get returns the user's wallet, provisioning one on first access. New
// wallets start at zero; outside production a configured seed balance may be
// credited for demo data.
func (s *Service) Get(ctx context.Context, userID string) (*Wallet, error) {
	var out *Wallet
	err := s.db.Transaction(func(tx *gorm.DB) error {
		w, err := s.provision(ctx, tx, userID)
		if err != nil {
			return err
		}
		out = w
		return nil
	})
	return out, err
}

func (s *Service) provision(ctx context.Context, tx *gorm.DB, userID string) (*Wallet, error) {
	w, err := s.wallets.WithTrx(tx).FindOne(ctx, &Wallet{UserID: userID})
	if err != nil {
		return nil, err
	}
	if w != nil {
		return w, nil
	}

	w = &Wallet{
		ID:      s.node.Generate().String(),
		UserID:  userID,
		Balance: money.Format(money.Zero),
	}
	if err := s.wallets.WithTrx(tx).Create(ctx, w); err != nil {
		return nil, err
	}

	if seed := s.config.Wallet.SeedBalance; seed != "" && s.config.AppEnv != "production" {
		amount, err := money.ParsePositive(seed)
		if err != nil {
			zap.L().Warn("ignoring invalid wallet seed balance", zap.String("seed", seed))
			return w, nil
		}
		if err := s.CreditTx(ctx, tx, userID, amount, EntryTopup, "seed", "seed balance"); err != nil {
			return nil, err
		}
		w, err = s.wallets.WithTrx(tx).FindOne(ctx, &Wallet{UserID: userID})
		if err != nil {
			return nil, err
		}
	}

	return w, nil
}

// CreditTx adds amount to the user's wallet inside the caller's transaction
// and records a ledger entry. The balance write is a compare-and-swap on the
// previous balance so concurrent mutations never lose an update.
func (s *Service) CreditTx(ctx context.Context, tx *gorm.DB, userID string, amount decimal.Decimal, entryType, referenceID, description string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return s.mutate(ctx, tx, userID, amount, "credit", entryType, referenceID, description)
}

// DebitTx removes amount from the user's wallet inside the caller's
// transaction. Debits exceeding the balance fail with ErrInsufficientBalance.
func (s *Service) DebitTx(ctx context.Context, tx *gorm.DB, userID string, amount decimal.Decimal, entryType, referenceID, description string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return s.mutate(ctx, tx, userID, amount.Neg(), "debit", entryType, referenceID, description)
}

func (s *Service) mutate(ctx context.Context, tx *gorm.DB, userID string, delta decimal.Decimal, direction, entryType, referenceID, description string) error {
	for attempt := 0; attempt < casAttempts; attempt++ {
		w, err := s.provision(ctx, tx, userID)
		if err != nil {
			return err
		}

		current, err := money.Parse(w.Balance)
		if err != nil {
			return err
		}

		next := money.Round2(current.Add(delta))
		if next.IsNegative() {
			return ErrInsufficientBalance
		}

		res := tx.WithContext(ctx).Model(&Wallet{}).
			Where("id = ? AND balance = ?", w.ID, w.Balance).
			Updates(map[string]any{
				"balance":    money.Format(next),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// lost the race, re-read and retry
			continue
		}

		return s.entries.WithTrx(tx).Create(ctx, &Entry{
			ID:          s.node.Generate().String(),
			WalletID:    w.ID,
			UserID:      userID,
			Type:        entryType,
			Direction:   direction,
			Amount:      money.Format(delta.Abs()),
			ReferenceID: referenceID,
			Description: description,
		})
	}
	return errutil.Conflict("wallet busy, retry the operation")
}

// Credit is CreditTx in its own transaction.
func (s *Service) Credit(ctx context.Context, userID string, amount decimal.Decimal, entryType, referenceID, description string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.CreditTx(ctx, tx, userID, amount, entryType, referenceID, description)
	})
}

// Debit is DebitTx in its own transaction.
func (s *Service) Debit(ctx context.Context, userID string, amount decimal.Decimal, entryType, referenceID, description string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.DebitTx(ctx, tx, userID, amount, entryType, referenceID, description)
	})
}

// Topup creates a payment-gateway order the client pays against. The wallet
// is credited only after VerifyTopup confirms the provider signature.
func (s *Service) Topup(ctx context.Context, userID, rawAmount string) (*TopupOrder, error) {
	amount, err := money.ParsePositive(rawAmount)
	if err != nil {
		return nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, money.Format(amount), "INR", "wallet-topup-"+userID)
	if err != nil {
		return nil, err
	}

	topup := &TopupOrder{
		ID:      s.node.Generate().String(),
		UserID:  userID,
		OrderID: order.ID,
		Amount:  money.Format(amount),
		Status:  TopupPending,
	}
	if err := s.topups.Create(ctx, topup); err != nil {
		return nil, err
	}
	return topup, nil
}

// VerifyTopup validates the provider callback and credits the wallet once.
func (s *Service) VerifyTopup(ctx context.Context, userID, orderID, paymentID, signature string) (*Wallet, error) {
	if !s.gateway.VerifySignature(orderID, paymentID, signature) {
		return nil, errutil.UnprocessableEntity("invalid payment signature")
	}

	topup, err := s.topups.FindOne(ctx, &TopupOrder{UserID: userID, OrderID: orderID})
	if err != nil {
		return nil, err
	}
	if topup == nil {
		return nil, errutil.NotFound("topup order not found")
	}
	if topup.Status == TopupPaid {
		return nil, errutil.Conflict("topup already processed")
	}

	amount, err := money.ParsePositive(topup.Amount)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).Model(&TopupOrder{}).
			Where("id = ? AND status = ?", topup.ID, TopupPending).
			Updates(map[string]any{"status": TopupPaid, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errutil.Conflict("topup already processed")
		}
		return s.CreditTx(ctx, tx, userID, amount, EntryTopup, paymentID, "wallet top-up")
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, userID)
}

// Withdraw debits the wallet towards the user's UPI handle.
func (s *Service) Withdraw(ctx context.Context, userID, rawAmount, upiID string) (*Wallet, error) {
	amount, err := money.ParsePositive(rawAmount)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		w, err := s.provision(ctx, tx, userID)
		if err != nil {
			return err
		}
		if upiID != "" && upiID != w.UpiID {
			if err := tx.WithContext(ctx).Model(&Wallet{}).
				Where("id = ?", w.ID).
				Updates(map[string]any{"upi_id": upiID, "updated_at": time.Now()}).Error; err != nil {
				return err
			}
		} else if w.UpiID == "" {
			return errutil.BadRequest("upi id required for withdrawal")
		}
		return s.DebitTx(ctx, tx, userID, amount, EntryWithdrawal, "", "wallet withdrawal")
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, userID)
}

// Entries lists the user's ledger rows, newest first.
func (s *Service) Entries(ctx context.Context, userID string) ([]*Entry, error) {
	return s.entries.Find(ctx, &Entry{UserID: userID}, option.WithOrder("created_at DESC"))
}
