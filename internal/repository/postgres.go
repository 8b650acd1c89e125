package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"blood-platform/internal/models"
)

// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx.
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Postgres is the sqlx-backed Store.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) View(ctx context.Context, fn func(Repository) error) error {
	return fn(&pgRepo{ex: p.db})
}

func (p *Postgres) Update(ctx context.Context, fn func(Repository) error) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Ensure the transaction is rolled back on error
	defer tx.Rollback()

	if err := fn(&pgRepo{ex: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

type pgRepo struct {
	ex DBExecutor
}

// translate maps driver errors onto the package sentinels.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

const userColumns = `id, email, password_hash, name, blood_type, role, tokens,
	donation_count, lives_saved, created_at, updated_at`

func (r *pgRepo) CreateUser(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.ex.ExecContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.Name, u.BloodType, u.Role, u.Tokens,
		u.DonationCount, u.LivesSaved, u.CreatedAt, u.UpdatedAt)
	return translate(err, "insert user")
}

func (r *pgRepo) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.ex.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, translate(err, "get user")
	}
	return &u, nil
}

func (r *pgRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.ex.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, translate(err, "get user by email")
	}
	return &u, nil
}

func (r *pgRepo) AddTokens(ctx context.Context, userID uuid.UUID, delta int) (int, error) {
	query := `
		UPDATE users SET tokens = tokens + $2, updated_at = now()
		WHERE id = $1 AND tokens + $2 >= 0
		RETURNING tokens`

	var balance int
	err := r.ex.GetContext(ctx, &balance, query, userID, delta)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := r.GetUser(ctx, userID); err != nil {
			return 0, err
		}
		return 0, ErrConditionFailed
	}
	if err != nil {
		return 0, translate(err, "add tokens")
	}
	return balance, nil
}

func (r *pgRepo) AddDonationStats(ctx context.Context, userID uuid.UUID, donations, livesSaved int) error {
	query := `
		UPDATE users SET donation_count = donation_count + $2,
			lives_saved = lives_saved + $3, updated_at = now()
		WHERE id = $1`
	res, err := r.ex.ExecContext(ctx, query, userID, donations, livesSaved)
	if err != nil {
		return translate(err, "add donation stats")
	}
	return requireRow(res)
}

const centerColumns = `id, name, address, city, latitude, longitude, phone, capacity, created_at`

func (r *pgRepo) CreateCenter(ctx context.Context, c *models.DonationCenter) error {
	query := `INSERT INTO donation_centers (` + centerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.ex.ExecContext(ctx, query,
		c.ID, c.Name, c.Address, c.City, c.Latitude, c.Longitude, c.Phone, c.Capacity, c.CreatedAt)
	return translate(err, "insert center")
}

func (r *pgRepo) ListCenters(ctx context.Context) ([]models.DonationCenter, error) {
	centers := []models.DonationCenter{}
	err := r.ex.SelectContext(ctx, &centers, `SELECT `+centerColumns+` FROM donation_centers ORDER BY name`)
	if err != nil {
		return nil, translate(err, "list centers")
	}
	return centers, nil
}

func (r *pgRepo) GetCenter(ctx context.Context, id uuid.UUID) (*models.DonationCenter, error) {
	var c models.DonationCenter
	err := r.ex.GetContext(ctx, &c, `SELECT `+centerColumns+` FROM donation_centers WHERE id = $1`, id)
	if err != nil {
		return nil, translate(err, "get center")
	}
	return &c, nil
}

func (r *pgRepo) LockCenter(ctx context.Context, id uuid.UUID) (*models.DonationCenter, error) {
	var c models.DonationCenter
	err := r.ex.GetContext(ctx, &c, `SELECT `+centerColumns+` FROM donation_centers WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, translate(err, "lock center")
	}
	return &c, nil
}

const appointmentColumns = `id, user_id, center_id, donation_type, date, time, status,
	notes, confirmation_code, created_at, updated_at`

func (r *pgRepo) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	query := `INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.ex.ExecContext(ctx, query,
		a.ID, a.UserID, a.CenterID, a.DonationType, a.Date, a.Time, a.Status,
		a.Notes, a.ConfirmationCode, a.CreatedAt, a.UpdatedAt)
	return translate(err, "insert appointment")
}

func (r *pgRepo) GetAppointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	var a models.Appointment
	err := r.ex.GetContext(ctx, &a, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	if err != nil {
		return nil, translate(err, "get appointment")
	}
	return &a, nil
}

func (r *pgRepo) ListAppointmentsByUser(ctx context.Context, userID uuid.UUID) ([]models.Appointment, error) {
	appointments := []models.Appointment{}
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE user_id = $1 ORDER BY date DESC, time DESC`
	if err := r.ex.SelectContext(ctx, &appointments, query, userID); err != nil {
		return nil, translate(err, "list appointments")
	}
	return appointments, nil
}

func (r *pgRepo) UpdateAppointment(ctx context.Context, a *models.Appointment) error {
	query := `UPDATE appointments SET status = $2, notes = $3, updated_at = $4 WHERE id = $1`
	res, err := r.ex.ExecContext(ctx, query, a.ID, a.Status, a.Notes, a.UpdatedAt)
	if err != nil {
		return translate(err, "update appointment")
	}
	return requireRow(res)
}

func (r *pgRepo) CountActiveAppointments(ctx context.Context, centerID uuid.UUID, date, slot string) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE center_id = $1 AND date = $2 AND time = $3 AND status IN ($4, $5)`
	var n int
	err := r.ex.GetContext(ctx, &n, query, centerID, date, slot,
		models.AppointmentScheduled, models.AppointmentConfirmed)
	if err != nil {
		return 0, translate(err, "count appointments")
	}
	return n, nil
}

func (r *pgRepo) CountActiveAppointmentsByTime(ctx context.Context, centerID uuid.UUID, date string) (map[string]int, error) {
	query := `
		SELECT time, COUNT(*) AS booked FROM appointments
		WHERE center_id = $1 AND date = $2 AND status IN ($3, $4)
		GROUP BY time`
	var rows []struct {
		Time   string `db:"time"`
		Booked int    `db:"booked"`
	}
	err := r.ex.SelectContext(ctx, &rows, query, centerID, date,
		models.AppointmentScheduled, models.AppointmentConfirmed)
	if err != nil {
		return nil, translate(err, "count appointments by time")
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Time] = row.Booked
	}
	return counts, nil
}

const donationColumns = `id, user_id, center_id, appointment_id, donation_type, date,
	tokens_earned, volume_ml, created_at`

func (r *pgRepo) CreateDonation(ctx context.Context, d *models.Donation) error {
	query := `INSERT INTO donations (` + donationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.ex.ExecContext(ctx, query,
		d.ID, d.UserID, d.CenterID, d.AppointmentID, d.DonationType, d.Date,
		d.TokensEarned, d.VolumeML, d.CreatedAt)
	return translate(err, "insert donation")
}

func (r *pgRepo) ListDonationsByUser(ctx context.Context, userID uuid.UUID, limit int, newestFirst bool) ([]models.Donation, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	query := `SELECT ` + donationColumns + ` FROM donations WHERE user_id = $1
		ORDER BY date ` + order + `, created_at ` + order
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	donations := []models.Donation{}
	if err := r.ex.SelectContext(ctx, &donations, query, args...); err != nil {
		return nil, translate(err, "list donations")
	}
	return donations, nil
}

const rewardColumns = `id, name, description, partner, category, tokens_required,
	stock_available, status, created_at, updated_at`

func (r *pgRepo) CreateReward(ctx context.Context, rw *models.Reward) error {
	query := `INSERT INTO rewards (` + rewardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.ex.ExecContext(ctx, query,
		rw.ID, rw.Name, rw.Description, rw.Partner, rw.Category, rw.TokensRequired,
		rw.StockAvailable, rw.Status, rw.CreatedAt, rw.UpdatedAt)
	return translate(err, "insert reward")
}

func (r *pgRepo) ListRewards(ctx context.Context) ([]models.Reward, error) {
	rewards := []models.Reward{}
	query := `SELECT ` + rewardColumns + ` FROM rewards ORDER BY tokens_required, name`
	if err := r.ex.SelectContext(ctx, &rewards, query); err != nil {
		return nil, translate(err, "list rewards")
	}
	return rewards, nil
}

func (r *pgRepo) GetReward(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	var rw models.Reward
	err := r.ex.GetContext(ctx, &rw, `SELECT `+rewardColumns+` FROM rewards WHERE id = $1`, id)
	if err != nil {
		return nil, translate(err, "get reward")
	}
	return &rw, nil
}

func (r *pgRepo) DecrementRewardStock(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE rewards SET stock_available = stock_available - 1, updated_at = now()
		WHERE id = $1 AND stock_available > 0
		RETURNING stock_available`
	var left int
	err := r.ex.GetContext(ctx, &left, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrConditionFailed
	}
	if err != nil {
		return 0, translate(err, "decrement stock")
	}
	return left, nil
}

func (r *pgRepo) SetRewardStatus(ctx context.Context, id uuid.UUID, status models.RewardStatus) error {
	res, err := r.ex.ExecContext(ctx,
		`UPDATE rewards SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return translate(err, "set reward status")
	}
	return requireRow(res)
}

const transactionColumns = `id, user_id, reward_id, tokens_spent, status, redemption_code,
	expires_at, created_at, updated_at`

func (r *pgRepo) CreateRewardTransaction(ctx context.Context, t *models.RewardTransaction) error {
	query := `INSERT INTO reward_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.ex.ExecContext(ctx, query,
		t.ID, t.UserID, t.RewardID, t.TokensSpent, t.Status, t.RedemptionCode,
		t.ExpiresAt, t.CreatedAt, t.UpdatedAt)
	return translate(err, "insert reward transaction")
}

func (r *pgRepo) GetRewardTransaction(ctx context.Context, id uuid.UUID) (*models.RewardTransaction, error) {
	var t models.RewardTransaction
	err := r.ex.GetContext(ctx, &t, `SELECT `+transactionColumns+` FROM reward_transactions WHERE id = $1`, id)
	if err != nil {
		return nil, translate(err, "get reward transaction")
	}
	return &t, nil
}

func (r *pgRepo) ListRewardTransactionsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.RewardTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM reward_transactions
		WHERE user_id = $1 ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	txns := []models.RewardTransaction{}
	if err := r.ex.SelectContext(ctx, &txns, query, args...); err != nil {
		return nil, translate(err, "list reward transactions")
	}
	return txns, nil
}

func (r *pgRepo) SetRewardTransactionStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error {
	res, err := r.ex.ExecContext(ctx,
		`UPDATE reward_transactions SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return translate(err, "set reward transaction status")
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
