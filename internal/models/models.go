package models

import (
	"time"

	"github.com/google/uuid"
)

// We use 'db' tags for sqlx to map the snake_case columns, and camelCase
// 'json' tags because the SPA consumes these structs directly.

// User is a registered donor (or staff member) and their token balance.
type User struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	Name          string    `db:"name" json:"name"`
	BloodType     string    `db:"blood_type" json:"bloodType,omitempty"`
	Role          string    `db:"role" json:"role"`
	Tokens        int       `db:"tokens" json:"tokens"`
	DonationCount int       `db:"donation_count" json:"donationCount"`
	LivesSaved    int       `db:"lives_saved" json:"livesSaved"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

const (
	RoleDonor = "donor"
	RoleStaff = "staff"
)

// DonationCenter is static reference data. Capacity is the number of
// appointments a single date+time slot can hold.
type DonationCenter struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	City      string    `db:"city" json:"city"`
	Latitude  float64   `db:"latitude" json:"latitude"`
	Longitude float64   `db:"longitude" json:"longitude"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Appointment is a booking of one slot at a center.
type Appointment struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	UserID           uuid.UUID         `db:"user_id" json:"userId"`
	CenterID         uuid.UUID         `db:"center_id" json:"centerId"`
	DonationType     DonationType      `db:"donation_type" json:"donationType"`
	Date             string            `db:"date" json:"date"`
	Time             string            `db:"time" json:"time"`
	Status           AppointmentStatus `db:"status" json:"status"`
	Notes            string            `db:"notes" json:"notes,omitempty"`
	ConfirmationCode string            `db:"confirmation_code" json:"confirmationCode"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updatedAt"`

	Center *DonationCenter `db:"-" json:"center,omitempty"`
}

// Donation is an append-only record of a completed donation.
type Donation struct {
	ID            uuid.UUID    `db:"id" json:"id"`
	UserID        uuid.UUID    `db:"user_id" json:"userId"`
	CenterID      uuid.UUID    `db:"center_id" json:"centerId"`
	AppointmentID *uuid.UUID   `db:"appointment_id" json:"appointmentId,omitempty"`
	DonationType  DonationType `db:"donation_type" json:"donationType"`
	Date          time.Time    `db:"date" json:"date"`
	TokensEarned  int          `db:"tokens_earned" json:"tokensEarned"`
	VolumeML      int          `db:"volume_ml" json:"volumeMl"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
}

// Reward is a marketplace item. A nil StockAvailable means unlimited stock.
type Reward struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	Name           string       `db:"name" json:"name"`
	Description    string       `db:"description" json:"description"`
	Partner        string       `db:"partner" json:"partner"`
	Category       string       `db:"category" json:"category"`
	TokensRequired int          `db:"tokens_required" json:"tokensRequired"`
	StockAvailable *int         `db:"stock_available" json:"stockAvailable,omitempty"`
	Status         RewardStatus `db:"status" json:"status"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updatedAt"`
}

// RewardTransaction records one redemption. TokensSpent is the price at the
// moment of redemption and is what a cancellation refunds.
type RewardTransaction struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	UserID         uuid.UUID         `db:"user_id" json:"userId"`
	RewardID       uuid.UUID         `db:"reward_id" json:"rewardId"`
	TokensSpent    int               `db:"tokens_spent" json:"tokensSpent"`
	Status         TransactionStatus `db:"status" json:"status"`
	RedemptionCode string            `db:"redemption_code" json:"redemptionCode"`
	ExpiresAt      time.Time         `db:"expires_at" json:"expiresAt"`
	CreatedAt      time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updatedAt"`

	Reward *Reward `db:"-" json:"reward,omitempty"`
}
