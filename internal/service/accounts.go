package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"blood-platform/internal/apperr"
	"blood-platform/internal/models"
	"blood-platform/internal/repository"
)

const minPasswordLength = 8

var bloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	BloodType string `json:"bloodType"`
}

// Accounts registers and authenticates users.
type Accounts struct {
	store repository.Store
	cfg   settings
	log   *log.Entry
}

func NewAccounts(store repository.Store, opts ...Option) *Accounts {
	return &Accounts{
		store: store,
		cfg:   newSettings(opts),
		log:   log.WithField("component", "accounts"),
	}
}

func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("email", "a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperr.Validation("password", "password must be at least %d characters", minPasswordLength)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name", "name is required")
	}
	bloodType := strings.ToUpper(strings.TrimSpace(in.BloodType))
	if bloodType != "" && !slices.Contains(bloodTypes, bloodType) {
		return nil, apperr.Validation("bloodType", "unknown blood type %q", in.BloodType)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), a.cfg.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := models.RoleDonor
	if slices.Contains(a.cfg.staffEmails, email) {
		role = models.RoleStaff
	}
	now := a.cfg.now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		BloodType:    bloodType,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = a.store.Update(ctx, func(repo repository.Repository) error {
		return repo.CreateUser(ctx, user)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Conflict("email", "email is already registered")
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	a.log.WithFields(log.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")
	return user, nil
}

// Login checks the credentials. Unknown emails and wrong passwords produce
// the same error.
func (a *Accounts) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user *models.User
	err := a.store.View(ctx, func(repo repository.Repository) error {
		var err error
		user, err = repo.GetUserByEmail(ctx, email)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Authentication("invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Authentication("invalid email or password")
	}
	return user, nil
}

func (a *Accounts) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user *models.User
	err := a.store.View(ctx, func(repo repository.Repository) error {
		var err error
		user, err = repo.GetUser(ctx, userID)
		return notFound(err, "user")
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
