package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"blood-platform/internal/apperr"
	"blood-platform/internal/metrics"
	"blood-platform/internal/models"
	"blood-platform/internal/repository"
)

// UserRewards is a user's balance and recent redemptions.
type UserRewards struct {
	Tokens       int                        `json:"tokens"`
	Transactions []models.RewardTransaction `json:"transactions"`
}

// Ledger spends and refunds tokens against the reward catalogue.
type Ledger struct {
	store repository.Store
	cfg   settings
	log   *log.Entry
}

func NewLedger(store repository.Store, opts ...Option) *Ledger {
	return &Ledger{
		store: store,
		cfg:   newSettings(opts),
		log:   log.WithField("component", "ledger"),
	}
}

func (l *Ledger) ListRewards(ctx context.Context) ([]models.Reward, error) {
	var rewards []models.Reward
	err := l.store.View(ctx, func(repo repository.Repository) error {
		var err error
		rewards, err = repo.ListRewards(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	if rewards == nil {
		rewards = []models.Reward{}
	}
	return rewards, nil
}

func (l *Ledger) GetReward(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	var reward *models.Reward
	err := l.store.View(ctx, func(repo repository.Repository) error {
		var err error
		reward, err = repo.GetReward(ctx, id)
		return notFound(err, "reward")
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// RedeemReward spends the reward's price from the user's balance and takes
// one unit of stock. The debit and the stock decrement are conditional
// updates in one transaction; if either does not apply nothing is written.
func (l *Ledger) RedeemReward(ctx context.Context, userID, rewardID uuid.UUID) (txn *models.RewardTransaction, err error) {
	start := time.Now()
	defer func() {
		result := "redeemed"
		switch {
		case err == nil:
		case apperr.IsKind(err, apperr.KindValidation), apperr.IsKind(err, apperr.KindNotFound):
			result = "rejected"
		default:
			result = "error"
		}
		metrics.RecordRedemption(result, time.Since(start))
	}()

	now := l.cfg.now().UTC()
	var balance int
	err = l.store.Update(ctx, func(repo repository.Repository) error {
		reward, err := repo.GetReward(ctx, rewardID)
		if err != nil {
			return notFound(err, "reward")
		}
		user, err := repo.GetUser(ctx, userID)
		if err != nil {
			return notFound(err, "user")
		}

		if !reward.Status.Redeemable() {
			return apperr.Validation("rewardId", "reward is not available")
		}
		if user.Tokens < reward.TokensRequired {
			return insufficientTokens(user.Tokens, reward.TokensRequired)
		}
		if reward.StockAvailable != nil && *reward.StockAvailable <= 0 {
			return apperr.Validation("rewardId", "reward is out of stock")
		}

		code, err := newRedemptionCode()
		if err != nil {
			return err
		}
		t := &models.RewardTransaction{
			ID:             uuid.New(),
			UserID:         userID,
			RewardID:       reward.ID,
			TokensSpent:    reward.TokensRequired,
			Status:         models.TransactionConfirmed,
			RedemptionCode: code,
			ExpiresAt:      now.Add(l.cfg.redemptionTTL),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := repo.CreateRewardTransaction(ctx, t); err != nil {
			return fmt.Errorf("create reward transaction: %w", err)
		}

		balance, err = repo.AddTokens(ctx, userID, -reward.TokensRequired)
		if errors.Is(err, repository.ErrConditionFailed) {
			return insufficientTokens(user.Tokens, reward.TokensRequired)
		}
		if err != nil {
			return fmt.Errorf("debit tokens: %w", err)
		}

		if reward.StockAvailable != nil {
			left, err := repo.DecrementRewardStock(ctx, reward.ID)
			if errors.Is(err, repository.ErrConditionFailed) {
				return apperr.Validation("rewardId", "reward is out of stock")
			}
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			status := models.StatusForStock(left, reward.Status)
			if status != reward.Status {
				if err := repo.SetRewardStatus(ctx, reward.ID, status); err != nil {
					return fmt.Errorf("set reward status: %w", err)
				}
			}
			reward.StockAvailable = &left
			reward.Status = status
		}

		t.Reward = reward
		txn = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.WithFields(log.Fields{
		"transaction_id": txn.ID,
		"reward_id":      txn.RewardID,
		"tokens_spent":   txn.TokensSpent,
		"balance":        balance,
	}).Info("reward redeemed")
	l.cfg.notifier.Notify(userID, EventRewardRedeemed, map[string]any{
		"transaction": txn,
		"tokens":      balance,
	})
	return txn, nil
}

func insufficientTokens(have, need int) error {
	return apperr.Validation("tokens", "insufficient tokens: have %d, need %d", have, need)
}

// CancelRewardTransaction refunds an open redemption to its owner. Stock
// taken by the redemption is not put back.
func (l *Ledger) CancelRewardTransaction(ctx context.Context, id, userID uuid.UUID) (*models.RewardTransaction, error) {
	var (
		txn     *models.RewardTransaction
		balance int
	)
	err := l.store.Update(ctx, func(repo repository.Repository) error {
		t, err := repo.GetRewardTransaction(ctx, id)
		if err != nil {
			return notFound(err, "transaction")
		}
		if t.UserID != userID {
			return apperr.NotFound("transaction")
		}
		if !t.Status.Open() {
			return apperr.Validation("status", "transaction is already %s", t.Status)
		}

		if balance, err = repo.AddTokens(ctx, userID, t.TokensSpent); err != nil {
			return notFound(err, "user")
		}
		if err := repo.SetRewardTransactionStatus(ctx, t.ID, models.TransactionCancelled); err != nil {
			return fmt.Errorf("set transaction status: %w", err)
		}
		t.Status = models.TransactionCancelled
		t.UpdatedAt = l.cfg.now().UTC()
		if t.Reward, err = repo.GetReward(ctx, t.RewardID); err != nil {
			return notFound(err, "reward")
		}
		txn = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.WithFields(log.Fields{
		"transaction_id": txn.ID,
		"refunded":       txn.TokensSpent,
		"balance":        balance,
	}).Info("reward transaction cancelled")
	l.cfg.notifier.Notify(userID, EventRewardCancelled, map[string]any{
		"transaction": txn,
		"tokens":      balance,
	})
	return txn, nil
}

// MarkRedeemed records that staff handed the reward over.
func (l *Ledger) MarkRedeemed(ctx context.Context, id uuid.UUID) (*models.RewardTransaction, error) {
	var txn *models.RewardTransaction
	err := l.store.Update(ctx, func(repo repository.Repository) error {
		t, err := repo.GetRewardTransaction(ctx, id)
		if err != nil {
			return notFound(err, "transaction")
		}
		if !t.Status.Open() {
			return apperr.Validation("status", "transaction is already %s", t.Status)
		}
		if err := repo.SetRewardTransactionStatus(ctx, t.ID, models.TransactionRedeemed); err != nil {
			return fmt.Errorf("set transaction status: %w", err)
		}
		t.Status = models.TransactionRedeemed
		t.UpdatedAt = l.cfg.now().UTC()
		if t.Reward, err = repo.GetReward(ctx, t.RewardID); err != nil {
			return notFound(err, "reward")
		}
		txn = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.log.WithField("transaction_id", txn.ID).Info("reward handed over")
	return txn, nil
}

// GetUserRewards returns the balance and the 50 newest transactions with
// their rewards attached.
func (l *Ledger) GetUserRewards(ctx context.Context, userID uuid.UUID) (*UserRewards, error) {
	out := &UserRewards{}
	err := l.store.View(ctx, func(repo repository.Repository) error {
		user, err := repo.GetUser(ctx, userID)
		if err != nil {
			return notFound(err, "user")
		}
		txns, err := repo.ListRewardTransactionsByUser(ctx, userID, transactionLimit)
		if err != nil {
			return fmt.Errorf("list reward transactions: %w", err)
		}
		rewards := map[uuid.UUID]*models.Reward{}
		for i := range txns {
			r, ok := rewards[txns[i].RewardID]
			if !ok {
				if r, err = repo.GetReward(ctx, txns[i].RewardID); err != nil {
					return notFound(err, "reward")
				}
				rewards[txns[i].RewardID] = r
			}
			txns[i].Reward = r
		}
		out.Tokens = user.Tokens
		out.Transactions = txns
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Transactions == nil {
		out.Transactions = []models.RewardTransaction{}
	}
	return out, nil
}
