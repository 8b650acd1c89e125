package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"blood-platform/internal/apperr"
	"blood-platform/internal/metrics"
	"blood-platform/internal/models"
	"blood-platform/internal/repository"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	slotsStart   = 9 * 60
	slotsEnd     = 17*60 + 30
	slotInterval = 30
)

// SlotTimes lists the bookable times of a day, 09:00 to 17:30 every half hour.
func SlotTimes() []string {
	var slots []string
	for m := slotsStart; m <= slotsEnd; m += slotInterval {
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

func validSlot(t string) bool {
	for _, s := range SlotTimes() {
		if s == t {
			return true
		}
	}
	return false
}

type AppointmentRequest struct {
	CenterID     uuid.UUID           `json:"centerId"`
	DonationType models.DonationType `json:"donationType"`
	Date         string              `json:"date"`
	Time         string              `json:"time"`
	Notes        string              `json:"notes"`
}

// Slot is the availability of one time at a center.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Capacity  int    `json:"capacity"`
	Booked    int    `json:"booked"`
}

type Availability struct {
	Date     string    `json:"date"`
	CenterID uuid.UUID `json:"centerId"`
	Slots    []Slot    `json:"slots"`
}

// Booking manages appointments and their capacity.
type Booking struct {
	store repository.Store
	cfg   settings
	log   *log.Entry
}

func NewBooking(store repository.Store, opts ...Option) *Booking {
	return &Booking{
		store: store,
		cfg:   newSettings(opts),
		log:   log.WithField("component", "booking"),
	}
}

func (b *Booking) validateRequest(req AppointmentRequest) error {
	if req.CenterID == uuid.Nil {
		return apperr.Validation("centerId", "centerId is required")
	}
	if !req.DonationType.Valid() {
		return apperr.Validation("donationType", "unknown donation type %q", req.DonationType)
	}
	day, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return apperr.Validation("date", "date must be formatted YYYY-MM-DD")
	}
	today := b.cfg.now().UTC().Format(dateLayout)
	if day.Format(dateLayout) < today {
		return apperr.Validation("date", "date must not be in the past")
	}
	if !validSlot(req.Time) {
		return apperr.Validation("time", "time must be a half-hour slot between 09:00 and 17:30")
	}
	return nil
}

// CreateAppointment books a slot for userID. The center row is locked for
// the duration of the count and insert so two bookings for the last seat
// cannot both succeed.
func (b *Booking) CreateAppointment(ctx context.Context, userID uuid.UUID, req AppointmentRequest) (*models.Appointment, error) {
	req.Notes = strings.TrimSpace(req.Notes)
	if err := b.validateRequest(req); err != nil {
		metrics.RecordBooking("rejected")
		return nil, err
	}

	now := b.cfg.now().UTC()
	var appt *models.Appointment
	err := b.store.Update(ctx, func(repo repository.Repository) error {
		center, err := repo.LockCenter(ctx, req.CenterID)
		if err != nil {
			return notFound(err, "donation center")
		}

		booked, err := repo.CountActiveAppointments(ctx, center.ID, req.Date, req.Time)
		if err != nil {
			return fmt.Errorf("count appointments: %w", err)
		}
		if booked >= center.Capacity {
			return apperr.Validation("time", "no availability at %s on %s", req.Time, req.Date)
		}

		code, err := newConfirmationCode(now)
		if err != nil {
			return err
		}
		appt = &models.Appointment{
			ID:               uuid.New(),
			UserID:           userID,
			CenterID:         center.ID,
			DonationType:     req.DonationType,
			Date:             req.Date,
			Time:             req.Time,
			Status:           models.AppointmentConfirmed,
			Notes:            req.Notes,
			ConfirmationCode: code,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := repo.CreateAppointment(ctx, appt); err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		appt.Center = center
		return nil
	})
	if err != nil {
		switch {
		case apperr.IsKind(err, apperr.KindValidation):
			metrics.RecordBooking("slot_full")
		case apperr.IsKind(err, apperr.KindNotFound):
			metrics.RecordBooking("rejected")
		default:
			metrics.RecordBooking("error")
		}
		return nil, err
	}

	metrics.RecordBooking("created")
	b.log.WithFields(log.Fields{
		"appointment_id": appt.ID,
		"center_id":      appt.CenterID,
		"date":           appt.Date,
		"time":           appt.Time,
	}).Info("appointment booked")
	b.cfg.notifier.Notify(userID, EventAppointmentCreated, appt)
	return appt, nil
}

// CancelAppointment cancels the caller's own appointment. Appointments of
// other users are reported as not found.
func (b *Booking) CancelAppointment(ctx context.Context, id, userID uuid.UUID, reason string) (*models.Appointment, error) {
	var appt *models.Appointment
	err := b.store.Update(ctx, func(repo repository.Repository) error {
		a, err := repo.GetAppointment(ctx, id)
		if err != nil {
			return notFound(err, "appointment")
		}
		if a.UserID != userID {
			return apperr.NotFound("appointment")
		}
		if !a.Status.CanTransition(models.AppointmentCancelled) {
			return apperr.Validation("status", "appointment is already %s", a.Status)
		}

		a.Status = models.AppointmentCancelled
		if reason = strings.TrimSpace(reason); reason != "" {
			a.Notes = appendNote(a.Notes, "Cancelled: "+reason)
		}
		a.UpdatedAt = b.cfg.now().UTC()
		if err := repo.UpdateAppointment(ctx, a); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		if err := attachCenter(ctx, repo, a); err != nil {
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.log.WithField("appointment_id", appt.ID).Info("appointment cancelled")
	b.cfg.notifier.Notify(userID, EventAppointmentCancelled, appt)
	return appt, nil
}

// UpdateStatus moves an appointment along its lifecycle on behalf of staff.
// Completion records a donation and goes through CompleteAppointment.
func (b *Booking) UpdateStatus(ctx context.Context, id uuid.UUID, status models.AppointmentStatus) (*models.Appointment, error) {
	if status == models.AppointmentCompleted {
		return nil, apperr.Validation("status", "use the complete operation to record a donation")
	}

	var appt *models.Appointment
	err := b.store.Update(ctx, func(repo repository.Repository) error {
		a, err := repo.GetAppointment(ctx, id)
		if err != nil {
			return notFound(err, "appointment")
		}
		if !a.Status.CanTransition(status) {
			return apperr.Validation("status", "cannot move appointment from %s to %s", a.Status, status)
		}
		a.Status = status
		a.UpdatedAt = b.cfg.now().UTC()
		if err := repo.UpdateAppointment(ctx, a); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		if err := attachCenter(ctx, repo, a); err != nil {
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.log.WithFields(log.Fields{"appointment_id": appt.ID, "status": appt.Status}).Info("appointment status changed")
	b.cfg.notifier.Notify(appt.UserID, EventAppointmentUpdated, appt)
	return appt, nil
}

// CheckAvailability reports every slot of date at the center.
func (b *Booking) CheckAvailability(ctx context.Context, centerID uuid.UUID, date string) (*Availability, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, apperr.Validation("date", "date must be formatted YYYY-MM-DD")
	}

	var (
		center *models.DonationCenter
		booked map[string]int
	)
	err := b.store.View(ctx, func(repo repository.Repository) error {
		var err error
		if center, err = repo.GetCenter(ctx, centerID); err != nil {
			return notFound(err, "donation center")
		}
		if booked, err = repo.CountActiveAppointmentsByTime(ctx, centerID, date); err != nil {
			return fmt.Errorf("count appointments: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	times := SlotTimes()
	out := &Availability{Date: date, CenterID: centerID, Slots: make([]Slot, 0, len(times))}
	for _, t := range times {
		n := booked[t]
		out.Slots = append(out.Slots, Slot{
			Time:      t,
			Available: n < center.Capacity,
			Capacity:  center.Capacity,
			Booked:    n,
		})
	}
	return out, nil
}

// ListAppointments returns the user's appointments, newest first, with their
// centers attached.
func (b *Booking) ListAppointments(ctx context.Context, userID uuid.UUID) ([]models.Appointment, error) {
	var out []models.Appointment
	err := b.store.View(ctx, func(repo repository.Repository) error {
		appts, err := repo.ListAppointmentsByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("list appointments: %w", err)
		}
		centers := map[uuid.UUID]*models.DonationCenter{}
		for i := range appts {
			c, ok := centers[appts[i].CenterID]
			if !ok {
				c, err = repo.GetCenter(ctx, appts[i].CenterID)
				if err != nil {
					return notFound(err, "donation center")
				}
				centers[appts[i].CenterID] = c
			}
			appts[i].Center = c
		}
		out = appts
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Appointment{}
	}
	return out, nil
}

func (b *Booking) ListCenters(ctx context.Context) ([]models.DonationCenter, error) {
	var centers []models.DonationCenter
	err := b.store.View(ctx, func(repo repository.Repository) error {
		var err error
		centers, err = repo.ListCenters(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list centers: %w", err)
	}
	if centers == nil {
		centers = []models.DonationCenter{}
	}
	return centers, nil
}

func (b *Booking) GetCenter(ctx context.Context, id uuid.UUID) (*models.DonationCenter, error) {
	var center *models.DonationCenter
	err := b.store.View(ctx, func(repo repository.Repository) error {
		var err error
		center, err = repo.GetCenter(ctx, id)
		return notFound(err, "donation center")
	})
	if err != nil {
		return nil, err
	}
	return center, nil
}

func attachCenter(ctx context.Context, repo repository.Repository, a *models.Appointment) error {
	c, err := repo.GetCenter(ctx, a.CenterID)
	if err != nil {
		return notFound(err, "donation center")
	}
	a.Center = c
	return nil
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
