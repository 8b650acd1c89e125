package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"blood-platform/internal/models"
	"blood-platform/internal/repository"
	"blood-platform/internal/service"
)

var epoch = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

// tickingClock starts at start and moves one second forward per call so
// records created in a test have distinct timestamps.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type event struct {
	userID uuid.UUID
	name   string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
}

func (n *recordingNotifier) Notify(userID uuid.UUID, name string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event{userID: userID, name: name})
}

func (n *recordingNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.name
	}
	return out
}

type fixture struct {
	ctx      context.Context
	store    *repository.Memory
	notifier *recordingNotifier
	opts     []service.Option
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	n := &recordingNotifier{}
	return &fixture{
		ctx:      context.Background(),
		store:    repository.NewMemory(),
		notifier: n,
		opts: []service.Option{
			service.WithClock(tickingClock(epoch)),
			service.WithNotifier(n),
		},
	}
}

func (f *fixture) update(t *testing.T, fn func(repository.Repository) error) {
	t.Helper()
	if err := f.store.Update(f.ctx, fn); err != nil {
		t.Fatalf("fixture update failed: %v", err)
	}
}

func (f *fixture) user(t *testing.T, tokens int) models.User {
	t.Helper()
	u := models.User{
		ID:     uuid.New(),
		Email:  uuid.NewString() + "@example.com",
		Name:   "Donor",
		Role:   models.RoleDonor,
		Tokens: tokens,
	}
	f.update(t, func(r repository.Repository) error { return r.CreateUser(f.ctx, &u) })
	return u
}

func (f *fixture) center(t *testing.T, capacity int) models.DonationCenter {
	t.Helper()
	c := models.DonationCenter{ID: uuid.New(), Name: "Banc de Sang", City: "Barcelona", Capacity: capacity}
	f.update(t, func(r repository.Repository) error { return r.CreateCenter(f.ctx, &c) })
	return c
}

func (f *fixture) reward(t *testing.T, price int, stock *int, status models.RewardStatus) models.Reward {
	t.Helper()
	r := models.Reward{
		ID:             uuid.New(),
		Name:           "Reward " + uuid.NewString()[:8],
		TokensRequired: price,
		StockAvailable: stock,
		Status:         status,
	}
	f.update(t, func(repo repository.Repository) error { return repo.CreateReward(f.ctx, &r) })
	return r
}

func (f *fixture) donation(t *testing.T, userID uuid.UUID, kind models.DonationType, date time.Time, tokens int) {
	t.Helper()
	d := models.Donation{
		ID:           uuid.New(),
		UserID:       userID,
		CenterID:     uuid.New(),
		DonationType: kind,
		Date:         date,
		TokensEarned: tokens,
		VolumeML:     450,
		CreatedAt:    date,
	}
	f.update(t, func(r repository.Repository) error { return r.CreateDonation(f.ctx, &d) })
}

func (f *fixture) getUser(t *testing.T, id uuid.UUID) models.User {
	t.Helper()
	var u *models.User
	err := f.store.View(f.ctx, func(r repository.Repository) error {
		var err error
		u, err = r.GetUser(f.ctx, id)
		return err
	})
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return *u
}

func (f *fixture) getReward(t *testing.T, id uuid.UUID) models.Reward {
	t.Helper()
	var r *models.Reward
	err := f.store.View(f.ctx, func(repo repository.Repository) error {
		var err error
		r, err = repo.GetReward(f.ctx, id)
		return err
	})
	if err != nil {
		t.Fatalf("get reward: %v", err)
	}
	return *r
}

func intPtr(v int) *int { return &v }
