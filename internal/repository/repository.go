// Package repository persists the platform's entities. Services talk to a
// Store and do all reads and writes through the Repository handed to View or
// Update; everything inside one Update call commits or rolls back together.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"blood-platform/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")

	// ErrConditionFailed is returned when a guarded update (token floor,
	// stock floor) matched no row.
	ErrConditionFailed = errors.New("conditional update did not apply")
)

// Repository is the set of queries available inside View and Update.
type Repository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// AddTokens applies delta to the user's balance unless the result would
	// be negative, and returns the new balance.
	AddTokens(ctx context.Context, userID uuid.UUID, delta int) (int, error)
	AddDonationStats(ctx context.Context, userID uuid.UUID, donations, livesSaved int) error

	CreateCenter(ctx context.Context, c *models.DonationCenter) error
	ListCenters(ctx context.Context) ([]models.DonationCenter, error)
	GetCenter(ctx context.Context, id uuid.UUID) (*models.DonationCenter, error)
	// LockCenter reads the center and holds a row lock on it until the
	// enclosing Update returns. Bookings at one center serialize on it.
	LockCenter(ctx context.Context, id uuid.UUID) (*models.DonationCenter, error)

	CreateAppointment(ctx context.Context, a *models.Appointment) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	ListAppointmentsByUser(ctx context.Context, userID uuid.UUID) ([]models.Appointment, error)
	UpdateAppointment(ctx context.Context, a *models.Appointment) error
	CountActiveAppointments(ctx context.Context, centerID uuid.UUID, date, slot string) (int, error)
	CountActiveAppointmentsByTime(ctx context.Context, centerID uuid.UUID, date string) (map[string]int, error)

	CreateDonation(ctx context.Context, d *models.Donation) error
	// ListDonationsByUser orders by date; limit <= 0 returns everything.
	ListDonationsByUser(ctx context.Context, userID uuid.UUID, limit int, newestFirst bool) ([]models.Donation, error)

	CreateReward(ctx context.Context, r *models.Reward) error
	ListRewards(ctx context.Context) ([]models.Reward, error)
	GetReward(ctx context.Context, id uuid.UUID) (*models.Reward, error)
	// DecrementRewardStock takes one unit of tracked stock and returns what is
	// left. Untracked or exhausted stock yields ErrConditionFailed.
	DecrementRewardStock(ctx context.Context, id uuid.UUID) (int, error)
	SetRewardStatus(ctx context.Context, id uuid.UUID, status models.RewardStatus) error

	CreateRewardTransaction(ctx context.Context, t *models.RewardTransaction) error
	GetRewardTransaction(ctx context.Context, id uuid.UUID) (*models.RewardTransaction, error)
	ListRewardTransactionsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.RewardTransaction, error)
	SetRewardTransactionStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error
}

// Store opens read and read-write units of work.
type Store interface {
	View(ctx context.Context, fn func(Repository) error) error
	Update(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}
