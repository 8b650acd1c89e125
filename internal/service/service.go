// Package service holds the platform's business rules: appointment booking,
// the token ledger and donation history. Every check-then-write sequence runs
// inside a single repository.Store Update so concurrent requests cannot
// oversell a slot, overdraw a balance or take stock that is not there.
package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"blood-platform/internal/apperr"
	"blood-platform/internal/repository"
)

// Notifier receives events after a mutation has committed.
type Notifier interface {
	Notify(userID uuid.UUID, event string, payload any)
}

type noopNotifier struct{}

func (noopNotifier) Notify(uuid.UUID, string, any) {}

// Event names pushed to notifiers.
const (
	EventAppointmentCreated   = "appointment.created"
	EventAppointmentCancelled = "appointment.cancelled"
	EventAppointmentUpdated   = "appointment.updated"
	EventDonationRecorded     = "donation.recorded"
	EventRewardRedeemed       = "reward.redeemed"
	EventRewardCancelled      = "reward.cancelled"
)

const (
	defaultRedemptionTTL = 30 * 24 * time.Hour
	historyLimit         = 50
	transactionLimit     = 50
)

type settings struct {
	now           func() time.Time
	notifier      Notifier
	redemptionTTL time.Duration
	bcryptCost    int
	staffEmails   []string
}

// Option customizes a service.
type Option func(*settings)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(s *settings) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithRedemptionTTL sets how long a redemption code stays valid.
func WithRedemptionTTL(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.redemptionTTL = d
		}
	}
}

func WithBcryptCost(cost int) Option {
	return func(s *settings) { s.bcryptCost = cost }
}

// WithStaffEmails lists addresses that are given the staff role on register.
func WithStaffEmails(emails []string) Option {
	return func(s *settings) { s.staffEmails = emails }
}

func newSettings(opts []Option) settings {
	s := settings{
		now:           time.Now,
		notifier:      noopNotifier{},
		redemptionTTL: defaultRedemptionTTL,
		bcryptCost:    bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// notFound converts a missing row into the NotFound kind and leaves every
// other error untouched.
func notFound(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(resource)
	}
	return err
}
