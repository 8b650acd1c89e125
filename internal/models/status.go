package models

// DonationType is one of the four kinds of donation a center accepts.
type DonationType string

const (
	DonationWholeBlood DonationType = "sang_total"
	DonationPlatelets  DonationType = "plaquetes"
	DonationPlasma     DonationType = "plasma"
	DonationMarrow     DonationType = "medul·la"
)

// DonationTypes lists the known types in histogram order.
var DonationTypes = []DonationType{DonationWholeBlood, DonationPlatelets, DonationPlasma, DonationMarrow}

const defaultWaitingDays = 56

var waitingDays = map[DonationType]int{
	DonationWholeBlood: 56,
	DonationPlatelets:  14,
	DonationPlasma:     14,
	DonationMarrow:     365,
}

var tokensPerDonation = map[DonationType]int{
	DonationWholeBlood: 15,
	DonationPlatelets:  20,
	DonationPlasma:     20,
	DonationMarrow:     50,
}

// Valid reports whether t is a known donation type.
func (t DonationType) Valid() bool {
	_, ok := waitingDays[t]
	return ok
}

// WaitingDays is the minimum number of days before the donor may donate
// again after a donation of this type. Unknown types wait 56 days.
func (t DonationType) WaitingDays() int {
	if d, ok := waitingDays[t]; ok {
		return d
	}
	return defaultWaitingDays
}

// Tokens is the reward credited for completing a donation of this type.
func (t DonationType) Tokens() int {
	return tokensPerDonation[t]
}

// AppointmentStatus is the appointment lifecycle state.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentNoShow    AppointmentStatus = "no-show"
)

// ActiveAppointmentStatuses are the states that occupy a slot.
var ActiveAppointmentStatuses = []AppointmentStatus{AppointmentScheduled, AppointmentConfirmed}

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentScheduled: {AppointmentConfirmed, AppointmentCancelled, AppointmentNoShow},
	AppointmentConfirmed: {AppointmentCompleted, AppointmentCancelled, AppointmentNoShow},
}

// Active reports whether the appointment still holds its slot.
func (s AppointmentStatus) Active() bool {
	return s == AppointmentScheduled || s == AppointmentConfirmed
}

// Terminal reports whether no further transition is allowed.
func (s AppointmentStatus) Terminal() bool {
	_, ok := appointmentTransitions[s]
	return !ok
}

// CanTransition reports whether s may move to next.
func (s AppointmentStatus) CanTransition(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RewardStatus is derived from stock for tracked rewards.
type RewardStatus string

const (
	RewardAvailable  RewardStatus = "available"
	RewardLowStock   RewardStatus = "low_stock"
	RewardOutOfStock RewardStatus = "out_of_stock"
)

// LowStockThreshold is the highest stock level still reported as low_stock.
const LowStockThreshold = 5

// Redeemable reports whether a reward in this status can be redeemed.
func (s RewardStatus) Redeemable() bool {
	return s == RewardAvailable || s == RewardLowStock
}

// StatusForStock recomputes a tracked reward's status after a stock change.
// Stock above the low-stock threshold leaves current untouched.
func StatusForStock(stock int, current RewardStatus) RewardStatus {
	switch {
	case stock <= 0:
		return RewardOutOfStock
	case stock <= LowStockThreshold:
		return RewardLowStock
	default:
		return current
	}
}

// TransactionStatus is the reward transaction lifecycle state.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionConfirmed TransactionStatus = "confirmed"
	TransactionRedeemed  TransactionStatus = "redeemed"
	TransactionExpired   TransactionStatus = "expired"
	TransactionCancelled TransactionStatus = "cancelled"
)

// Open reports whether the transaction can still be redeemed or cancelled.
func (s TransactionStatus) Open() bool {
	return s == TransactionPending || s == TransactionConfirmed
}
