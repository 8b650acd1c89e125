package repository

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"blood-platform/internal/models"
)

// Memory holds all state in maps. Update calls are serialized and roll back
// to a snapshot when fn fails, so it behaves like the Postgres store for
// tests and local development.
type Memory struct {
	mu    sync.RWMutex
	state *memState
}

type memState struct {
	users        map[uuid.UUID]models.User
	centers      map[uuid.UUID]models.DonationCenter
	appointments map[uuid.UUID]models.Appointment
	donations    map[uuid.UUID]models.Donation
	rewards      map[uuid.UUID]models.Reward
	transactions map[uuid.UUID]models.RewardTransaction
}

func NewMemory() *Memory {
	return &Memory{state: &memState{
		users:        make(map[uuid.UUID]models.User),
		centers:      make(map[uuid.UUID]models.DonationCenter),
		appointments: make(map[uuid.UUID]models.Appointment),
		donations:    make(map[uuid.UUID]models.Donation),
		rewards:      make(map[uuid.UUID]models.Reward),
		transactions: make(map[uuid.UUID]models.RewardTransaction),
	}}
}

func (m *Memory) View(ctx context.Context, fn func(Repository) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(m.state)
}

func (m *Memory) Update(ctx context.Context, fn func(Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(m.state); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// clone copies every map. Stored values never share pointers with callers,
// so copying the maps is enough.
func (s *memState) clone() *memState {
	return &memState{
		users:        maps.Clone(s.users),
		centers:      maps.Clone(s.centers),
		appointments: maps.Clone(s.appointments),
		donations:    maps.Clone(s.donations),
		rewards:      maps.Clone(s.rewards),
		transactions: maps.Clone(s.transactions),
	}
}

func (s *memState) CreateUser(ctx context.Context, u *models.User) error {
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicate
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *memState) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *memState) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memState) AddTokens(ctx context.Context, userID uuid.UUID, delta int) (int, error) {
	u, ok := s.users[userID]
	if !ok {
		return 0, ErrNotFound
	}
	if u.Tokens+delta < 0 {
		return 0, ErrConditionFailed
	}
	u.Tokens += delta
	u.UpdatedAt = time.Now()
	s.users[userID] = u
	return u.Tokens, nil
}

func (s *memState) AddDonationStats(ctx context.Context, userID uuid.UUID, donations, livesSaved int) error {
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.DonationCount += donations
	u.LivesSaved += livesSaved
	u.UpdatedAt = time.Now()
	s.users[userID] = u
	return nil
}

func (s *memState) CreateCenter(ctx context.Context, c *models.DonationCenter) error {
	if _, ok := s.centers[c.ID]; ok {
		return ErrDuplicate
	}
	s.centers[c.ID] = *c
	return nil
}

func (s *memState) ListCenters(ctx context.Context) ([]models.DonationCenter, error) {
	centers := make([]models.DonationCenter, 0, len(s.centers))
	for _, c := range s.centers {
		centers = append(centers, c)
	}
	sort.Slice(centers, func(i, j int) bool { return centers[i].Name < centers[j].Name })
	return centers, nil
}

func (s *memState) GetCenter(ctx context.Context, id uuid.UUID) (*models.DonationCenter, error) {
	c, ok := s.centers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// LockCenter is GetCenter: Update already holds the store-wide lock.
func (s *memState) LockCenter(ctx context.Context, id uuid.UUID) (*models.DonationCenter, error) {
	return s.GetCenter(ctx, id)
}

func (s *memState) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	if _, ok := s.appointments[a.ID]; ok {
		return ErrDuplicate
	}
	stored := *a
	stored.Center = nil
	s.appointments[a.ID] = stored
	return nil
}

func (s *memState) GetAppointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *memState) ListAppointmentsByUser(ctx context.Context, userID uuid.UUID) ([]models.Appointment, error) {
	appointments := []models.Appointment{}
	for _, a := range s.appointments {
		if a.UserID == userID {
			appointments = append(appointments, a)
		}
	}
	sort.Slice(appointments, func(i, j int) bool {
		ki := appointments[i].Date + " " + appointments[i].Time
		kj := appointments[j].Date + " " + appointments[j].Time
		return ki > kj
	})
	return appointments, nil
}

func (s *memState) UpdateAppointment(ctx context.Context, a *models.Appointment) error {
	stored, ok := s.appointments[a.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Status = a.Status
	stored.Notes = a.Notes
	stored.UpdatedAt = a.UpdatedAt
	s.appointments[a.ID] = stored
	return nil
}

func (s *memState) CountActiveAppointments(ctx context.Context, centerID uuid.UUID, date, slot string) (int, error) {
	n := 0
	for _, a := range s.appointments {
		if a.CenterID == centerID && a.Date == date && a.Time == slot && a.Status.Active() {
			n++
		}
	}
	return n, nil
}

func (s *memState) CountActiveAppointmentsByTime(ctx context.Context, centerID uuid.UUID, date string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, a := range s.appointments {
		if a.CenterID == centerID && a.Date == date && a.Status.Active() {
			counts[a.Time]++
		}
	}
	return counts, nil
}

func (s *memState) CreateDonation(ctx context.Context, d *models.Donation) error {
	if _, ok := s.donations[d.ID]; ok {
		return ErrDuplicate
	}
	stored := *d
	if d.AppointmentID != nil {
		id := *d.AppointmentID
		stored.AppointmentID = &id
	}
	s.donations[d.ID] = stored
	return nil
}

func (s *memState) ListDonationsByUser(ctx context.Context, userID uuid.UUID, limit int, newestFirst bool) ([]models.Donation, error) {
	donations := []models.Donation{}
	for _, d := range s.donations {
		if d.UserID == userID {
			donations = append(donations, d)
		}
	}
	sort.Slice(donations, func(i, j int) bool {
		a, b := donations[i], donations[j]
		if !a.Date.Equal(b.Date) {
			if newestFirst {
				return a.Date.After(b.Date)
			}
			return a.Date.Before(b.Date)
		}
		if newestFirst {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	if limit > 0 && len(donations) > limit {
		donations = donations[:limit]
	}
	return donations, nil
}

func (s *memState) CreateReward(ctx context.Context, r *models.Reward) error {
	if _, ok := s.rewards[r.ID]; ok {
		return ErrDuplicate
	}
	s.rewards[r.ID] = detachReward(*r)
	return nil
}

func (s *memState) ListRewards(ctx context.Context) ([]models.Reward, error) {
	rewards := make([]models.Reward, 0, len(s.rewards))
	for _, r := range s.rewards {
		rewards = append(rewards, detachReward(r))
	}
	sort.Slice(rewards, func(i, j int) bool {
		if rewards[i].TokensRequired != rewards[j].TokensRequired {
			return rewards[i].TokensRequired < rewards[j].TokensRequired
		}
		return rewards[i].Name < rewards[j].Name
	})
	return rewards, nil
}

func (s *memState) GetReward(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	r, ok := s.rewards[id]
	if !ok {
		return nil, ErrNotFound
	}
	r = detachReward(r)
	return &r, nil
}

// detachReward gives the caller its own copy of the stock counter.
func detachReward(r models.Reward) models.Reward {
	if r.StockAvailable != nil {
		stock := *r.StockAvailable
		r.StockAvailable = &stock
	}
	return r
}

func (s *memState) DecrementRewardStock(ctx context.Context, id uuid.UUID) (int, error) {
	r, ok := s.rewards[id]
	if !ok {
		return 0, ErrNotFound
	}
	if r.StockAvailable == nil || *r.StockAvailable <= 0 {
		return 0, ErrConditionFailed
	}
	left := *r.StockAvailable - 1
	r.StockAvailable = &left
	r.UpdatedAt = time.Now()
	s.rewards[id] = r
	return left, nil
}

func (s *memState) SetRewardStatus(ctx context.Context, id uuid.UUID, status models.RewardStatus) error {
	r, ok := s.rewards[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	s.rewards[id] = r
	return nil
}

func (s *memState) CreateRewardTransaction(ctx context.Context, t *models.RewardTransaction) error {
	if _, ok := s.transactions[t.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range s.transactions {
		if existing.RedemptionCode == t.RedemptionCode {
			return ErrDuplicate
		}
	}
	stored := *t
	stored.Reward = nil
	s.transactions[t.ID] = stored
	return nil
}

func (s *memState) GetRewardTransaction(ctx context.Context, id uuid.UUID) (*models.RewardTransaction, error) {
	t, ok := s.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *memState) ListRewardTransactionsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.RewardTransaction, error) {
	txns := []models.RewardTransaction{}
	for _, t := range s.transactions {
		if t.UserID == userID {
			txns = append(txns, t)
		}
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].CreatedAt.After(txns[j].CreatedAt) })
	if limit > 0 && len(txns) > limit {
		txns = txns[:limit]
	}
	return txns, nil
}

func (s *memState) SetRewardTransactionStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error {
	t, ok := s.transactions[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	s.transactions[id] = t
	return nil
}
