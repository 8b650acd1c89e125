package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"blood-platform/internal/apperr"
	"blood-platform/internal/models"
	"blood-platform/internal/repository"
	"blood-platform/internal/service"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNextEligibleDate(t *testing.T) {
	last := day("2025-01-01")
	tests := []struct {
		kind models.DonationType
		want string
	}{
		{models.DonationWholeBlood, "2025-02-26"},
		{models.DonationPlatelets, "2025-01-15"},
		{models.DonationPlasma, "2025-01-15"},
		{models.DonationMarrow, "2026-01-01"},
		{"unknown", "2025-02-26"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got := service.NextEligibleDate(models.Donation{DonationType: tt.kind, Date: last})
			if got.Format("2006-01-02") != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Format("2006-01-02"))
			}
		})
	}
}

func TestCompleteAppointmentCreditsDonor(t *testing.T) {
	f := setupFixture(t)
	booking := service.NewBooking(f.store, f.opts...)
	donations := service.NewDonations(f.store, f.opts...)
	center := f.center(t, 2)
	user := f.user(t, 5)

	req := request(center.ID, "10:00")
	req.DonationType = models.DonationPlatelets
	appt, err := booking.CreateAppointment(f.ctx, user.ID, req)
	if err != nil {
		t.Fatal(err)
	}

	d, err := donations.CompleteAppointment(f.ctx, appt.ID, 0)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if d.TokensEarned != 20 || d.VolumeML != 450 {
		t.Errorf("unexpected donation %+v", d)
	}
	if d.AppointmentID == nil || *d.AppointmentID != appt.ID {
		t.Error("expected donation to reference the appointment")
	}
	if d.Date.Format("2006-01-02 15:04") != bookingDate+" 10:00" {
		t.Errorf("expected donation dated at the appointment, got %s", d.Date)
	}

	got := f.getUser(t, user.ID)
	if got.Tokens != 25 || got.DonationCount != 1 || got.LivesSaved != 3 {
		t.Errorf("unexpected donor stats %+v", got)
	}

	_, err = donations.CompleteAppointment(f.ctx, appt.ID, 0)
	assertValidation(t, err, "status")
	if again := f.getUser(t, user.ID); again.Tokens != 25 {
		t.Errorf("expected no double credit, got %d tokens", again.Tokens)
	}

	if _, err := donations.CompleteAppointment(f.ctx, uuid.New(), 0); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	_, err = donations.CompleteAppointment(f.ctx, appt.ID, -1)
	assertValidation(t, err, "volumeMl")
}

func TestCompleteAppointmentCorruptSlot(t *testing.T) {
	f := setupFixture(t)
	donations := service.NewDonations(f.store, f.opts...)
	center := f.center(t, 2)
	user := f.user(t, 0)

	appt := models.Appointment{
		ID:           uuid.New(),
		UserID:       user.ID,
		CenterID:     center.ID,
		DonationType: models.DonationWholeBlood,
		Date:         "10/03/2025",
		Time:         "10:00",
		Status:       models.AppointmentConfirmed,
	}
	f.update(t, func(r repository.Repository) error { return r.CreateAppointment(f.ctx, &appt) })

	_, err := donations.CompleteAppointment(f.ctx, appt.ID, 0)
	if err == nil {
		t.Fatal("expected an error for an unparseable slot")
	}
	if _, ok := apperr.As(err); ok {
		t.Errorf("expected an internal error, got %v", err)
	}

	got := f.getUser(t, user.ID)
	if got.Tokens != 0 || got.DonationCount != 0 {
		t.Errorf("expected nothing credited, got %+v", got)
	}
	var stored *models.Appointment
	f.update(t, func(r repository.Repository) error {
		var err error
		stored, err = r.GetAppointment(f.ctx, appt.ID)
		return err
	})
	if stored.Status != models.AppointmentConfirmed {
		t.Errorf("expected the appointment to stay confirmed, got %s", stored.Status)
	}
}

func TestGetDonationHistory(t *testing.T) {
	f := setupFixture(t)
	donations := service.NewDonations(f.store, f.opts...)
	user := f.user(t, 0)

	f.donation(t, user.ID, models.DonationWholeBlood, day("2024-06-01"), 15)
	f.donation(t, user.ID, models.DonationPlasma, day("2024-10-01"), 20)
	f.donation(t, user.ID, models.DonationPlatelets, day("2025-02-20"), 20)

	h, err := donations.GetDonationHistory(f.ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Donations) != 3 || !h.Donations[0].Date.Equal(day("2025-02-20")) {
		t.Fatalf("expected newest first, got %+v", h.Donations)
	}
	if len(h.Stats.ByType) != 4 {
		t.Errorf("expected every donation type in the histogram, got %v", h.Stats.ByType)
	}
	if h.Stats.ByType[models.DonationMarrow] != 0 || h.Stats.ByType[models.DonationPlasma] != 1 {
		t.Errorf("unexpected histogram %v", h.Stats.ByType)
	}
	if h.Stats.LastDonationDate == nil || !h.Stats.LastDonationDate.Equal(day("2025-02-20")) {
		t.Errorf("unexpected last donation %v", h.Stats.LastDonationDate)
	}
	if h.Stats.NextEligibleDate == nil || !h.Stats.NextEligibleDate.Equal(day("2025-03-06")) {
		t.Errorf("unexpected next eligible %v", h.Stats.NextEligibleDate)
	}
}

func TestGetDonationHistoryLimit(t *testing.T) {
	f := setupFixture(t)
	donations := service.NewDonations(f.store, f.opts...)
	user := f.user(t, 0)

	start := day("2020-01-01")
	for i := 0; i < 60; i++ {
		f.donation(t, user.ID, models.DonationPlasma, start.AddDate(0, 0, 14*i), 20)
	}
	h, err := donations.GetDonationHistory(f.ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Donations) != 50 {
		t.Errorf("expected 50 donations, got %d", len(h.Donations))
	}
}

func TestGetDonationHistoryEmpty(t *testing.T) {
	f := setupFixture(t)
	donations := service.NewDonations(f.store, f.opts...)
	user := f.user(t, 0)

	h, err := donations.GetDonationHistory(f.ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if h.Donations == nil || len(h.Donations) != 0 {
		t.Errorf("expected an empty list, got %v", h.Donations)
	}
	if h.Stats.LastDonationDate != nil || h.Stats.NextEligibleDate != nil {
		t.Error("expected no dates without donations")
	}

	if _, err := donations.GetDonationHistory(f.ctx, uuid.New()); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not found for unknown user, got %v", err)
	}
}

func TestGetAnalytics(t *testing.T) {
	f := setupFixture(t)
	donations := service.NewDonations(f.store, f.opts...)
	user := f.user(t, 0)

	// Inserted out of order to check the months come back sorted.
	f.donation(t, user.ID, models.DonationPlatelets, day("2025-02-01"), 20)
	f.donation(t, user.ID, models.DonationWholeBlood, day("2025-01-20"), 15)
	f.donation(t, user.ID, models.DonationWholeBlood, day("2025-01-05"), 15)

	a, err := donations.GetAnalytics(f.ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}

	wantCounts := []service.MonthCount{{Month: "2025-01", Count: 2}, {Month: "2025-02", Count: 1}}
	wantTokens := []service.MonthTokens{{Month: "2025-01", Tokens: 30}, {Month: "2025-02", Tokens: 20}}
	if len(a.DonationEvolution) != 2 || len(a.MonthlyTokens) != 2 {
		t.Fatalf("unexpected analytics %+v", a)
	}
	for i := range wantCounts {
		if a.DonationEvolution[i] != wantCounts[i] {
			t.Errorf("evolution[%d]: expected %+v, got %+v", i, wantCounts[i], a.DonationEvolution[i])
		}
		if a.MonthlyTokens[i] != wantTokens[i] {
			t.Errorf("tokens[%d]: expected %+v, got %+v", i, wantTokens[i], a.MonthlyTokens[i])
		}
	}
	if a.Stats.TotalDonations != 3 || a.Stats.TotalTokens != 50 || a.Stats.TotalVolumeML != 1350 {
		t.Errorf("unexpected totals %+v", a.Stats)
	}
}

func TestNextEligible(t *testing.T) {
	f := setupFixture(t)
	donations := service.NewDonations(f.store, f.opts...)

	fresh := f.user(t, 0)
	e, err := donations.NextEligible(f.ctx, fresh.ID)
	if err != nil {
		t.Fatal(err)
	}
	if e.DaysUntil != 0 || !e.Date.Equal(day("2025-03-01")) {
		t.Errorf("expected eligible today, got %+v", e)
	}

	recent := f.user(t, 0)
	f.donation(t, recent.ID, models.DonationPlatelets, day("2025-02-20"), 20)
	e, err = donations.NextEligible(f.ctx, recent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if e.DaysUntil != 5 || !e.Date.Equal(day("2025-03-06")) {
		t.Errorf("expected 5 days until 2025-03-06, got %+v", e)
	}

	past := f.user(t, 0)
	f.donation(t, past.ID, models.DonationPlasma, day("2024-01-01"), 20)
	e, err = donations.NextEligible(f.ctx, past.ID)
	if err != nil {
		t.Fatal(err)
	}
	if e.DaysUntil != 0 {
		t.Errorf("expected a past eligibility to clamp to 0, got %d", e.DaysUntil)
	}
}
