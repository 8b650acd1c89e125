package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"blood-platform/internal/apperr"
	"blood-platform/internal/models"
	"blood-platform/internal/repository"
)

const (
	defaultVolumeML  = 450
	livesPerDonation = 3
	monthLayout      = "2006-01"
)

// DonationStats summarizes a donor's history.
type DonationStats struct {
	TotalDonations   int                         `json:"totalDonations"`
	DonationCount    int                         `json:"donationCount"`
	LivesSaved       int                         `json:"livesSaved"`
	Tokens           int                         `json:"tokens"`
	ByType           map[models.DonationType]int `json:"byType"`
	LastDonationDate *time.Time                  `json:"lastDonationDate"`
	NextEligibleDate *time.Time                  `json:"nextEligibleDate"`
}

type DonationHistory struct {
	Donations []models.Donation `json:"donations"`
	Stats     DonationStats     `json:"stats"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type MonthTokens struct {
	Month  string `json:"month"`
	Tokens int    `json:"tokens"`
}

type AnalyticsStats struct {
	TotalDonations int                         `json:"totalDonations"`
	TotalTokens    int                         `json:"totalTokens"`
	TotalVolumeML  int                         `json:"totalVolumeMl"`
	ByType         map[models.DonationType]int `json:"byType"`
}

type Analytics struct {
	DonationEvolution []MonthCount   `json:"donationEvolution"`
	MonthlyTokens     []MonthTokens  `json:"monthlyTokens"`
	Stats             AnalyticsStats `json:"stats"`
}

// Eligibility is when the donor may donate again.
type Eligibility struct {
	Date      time.Time `json:"date"`
	DaysUntil int       `json:"daysUntil"`
}

// Donations records completed donations and reports on them.
type Donations struct {
	store repository.Store
	cfg   settings
	log   *log.Entry
}

func NewDonations(store repository.Store, opts ...Option) *Donations {
	return &Donations{
		store: store,
		cfg:   newSettings(opts),
		log:   log.WithField("component", "donations"),
	}
}

// NextEligibleDate is the earliest date a donor may donate again after d.
func NextEligibleDate(d models.Donation) time.Time {
	return d.Date.AddDate(0, 0, d.DonationType.WaitingDays())
}

func typeHistogram() map[models.DonationType]int {
	h := make(map[models.DonationType]int, len(models.DonationTypes))
	for _, t := range models.DonationTypes {
		h[t] = 0
	}
	return h
}

// CompleteAppointment marks a confirmed appointment completed and records the
// donation. Tokens and donor stats are credited in the same transaction.
func (s *Donations) CompleteAppointment(ctx context.Context, appointmentID uuid.UUID, volumeML int) (*models.Donation, error) {
	if volumeML < 0 {
		return nil, apperr.Validation("volumeMl", "volume must not be negative")
	}
	if volumeML == 0 {
		volumeML = defaultVolumeML
	}

	now := s.cfg.now().UTC()
	var (
		donation *models.Donation
		balance  int
	)
	err := s.store.Update(ctx, func(repo repository.Repository) error {
		a, err := repo.GetAppointment(ctx, appointmentID)
		if err != nil {
			return notFound(err, "appointment")
		}
		if !a.Status.CanTransition(models.AppointmentCompleted) {
			return apperr.Validation("status", "cannot complete an appointment that is %s", a.Status)
		}

		a.Status = models.AppointmentCompleted
		a.UpdatedAt = now
		if err := repo.UpdateAppointment(ctx, a); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}

		date, err := time.Parse(dateLayout+" "+timeLayout, a.Date+" "+a.Time)
		if err != nil {
			return fmt.Errorf("appointment %s has unparseable slot %q %q: %w", a.ID, a.Date, a.Time, err)
		}
		apptID := a.ID
		donation = &models.Donation{
			ID:            uuid.New(),
			UserID:        a.UserID,
			CenterID:      a.CenterID,
			AppointmentID: &apptID,
			DonationType:  a.DonationType,
			Date:          date,
			TokensEarned:  a.DonationType.Tokens(),
			VolumeML:      volumeML,
			CreatedAt:     now,
		}
		if err := repo.CreateDonation(ctx, donation); err != nil {
			return fmt.Errorf("create donation: %w", err)
		}
		if balance, err = repo.AddTokens(ctx, a.UserID, donation.TokensEarned); err != nil {
			return notFound(err, "user")
		}
		if err := repo.AddDonationStats(ctx, a.UserID, 1, livesPerDonation); err != nil {
			return notFound(err, "user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(log.Fields{
		"donation_id": donation.ID,
		"user_id":     donation.UserID,
		"tokens":      donation.TokensEarned,
		"balance":     balance,
	}).Info("donation recorded")
	s.cfg.notifier.Notify(donation.UserID, EventDonationRecorded, map[string]any{
		"donation": donation,
		"tokens":   balance,
	})
	return donation, nil
}

// GetDonationHistory returns the 50 most recent donations and the donor's
// aggregate stats.
func (s *Donations) GetDonationHistory(ctx context.Context, userID uuid.UUID) (*DonationHistory, error) {
	var (
		user      *models.User
		donations []models.Donation
	)
	err := s.store.View(ctx, func(repo repository.Repository) error {
		var err error
		if user, err = repo.GetUser(ctx, userID); err != nil {
			return notFound(err, "user")
		}
		if donations, err = repo.ListDonationsByUser(ctx, userID, historyLimit, true); err != nil {
			return fmt.Errorf("list donations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats := DonationStats{
		TotalDonations: len(donations),
		DonationCount:  user.DonationCount,
		LivesSaved:     user.LivesSaved,
		Tokens:         user.Tokens,
		ByType:         typeHistogram(),
	}
	for _, d := range donations {
		stats.ByType[d.DonationType]++
	}
	if len(donations) > 0 {
		last := donations[0].Date
		next := NextEligibleDate(donations[0])
		stats.LastDonationDate = &last
		stats.NextEligibleDate = &next
	}
	if donations == nil {
		donations = []models.Donation{}
	}
	return &DonationHistory{Donations: donations, Stats: stats}, nil
}

// GetAnalytics buckets every donation by calendar month, oldest month first.
func (s *Donations) GetAnalytics(ctx context.Context, userID uuid.UUID) (*Analytics, error) {
	var donations []models.Donation
	err := s.store.View(ctx, func(repo repository.Repository) error {
		if _, err := repo.GetUser(ctx, userID); err != nil {
			return notFound(err, "user")
		}
		var err error
		donations, err = repo.ListDonationsByUser(ctx, userID, 0, false)
		if err != nil {
			return fmt.Errorf("list donations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	tokens := map[string]int{}
	stats := AnalyticsStats{ByType: typeHistogram()}
	for _, d := range donations {
		month := d.Date.UTC().Format(monthLayout)
		counts[month]++
		tokens[month] += d.TokensEarned
		stats.TotalDonations++
		stats.TotalTokens += d.TokensEarned
		stats.TotalVolumeML += d.VolumeML
		stats.ByType[d.DonationType]++
	}

	months := make([]string, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	sort.Strings(months)

	out := &Analytics{
		DonationEvolution: make([]MonthCount, 0, len(months)),
		MonthlyTokens:     make([]MonthTokens, 0, len(months)),
		Stats:             stats,
	}
	for _, m := range months {
		out.DonationEvolution = append(out.DonationEvolution, MonthCount{Month: m, Count: counts[m]})
		out.MonthlyTokens = append(out.MonthlyTokens, MonthTokens{Month: m, Tokens: tokens[m]})
	}
	return out, nil
}

// NextEligible reports when the user may donate next. A donor with no
// history is eligible today.
func (s *Donations) NextEligible(ctx context.Context, userID uuid.UUID) (*Eligibility, error) {
	var latest []models.Donation
	err := s.store.View(ctx, func(repo repository.Repository) error {
		if _, err := repo.GetUser(ctx, userID); err != nil {
			return notFound(err, "user")
		}
		var err error
		latest, err = repo.ListDonationsByUser(ctx, userID, 1, true)
		if err != nil {
			return fmt.Errorf("list donations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	today := truncateDay(s.cfg.now())
	if len(latest) == 0 {
		return &Eligibility{Date: today, DaysUntil: 0}, nil
	}

	next := truncateDay(NextEligibleDate(latest[0]))
	days := int(math.Ceil(next.Sub(today).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return &Eligibility{Date: next, DaysUntil: days}, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
