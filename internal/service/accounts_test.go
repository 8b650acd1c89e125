package service_test

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"blood-platform/internal/apperr"
	"blood-platform/internal/models"
	"blood-platform/internal/service"
)

func newAccounts(f *fixture, extra ...service.Option) *service.Accounts {
	opts := append([]service.Option{service.WithBcryptCost(bcrypt.MinCost)}, f.opts...)
	return service.NewAccounts(f.store, append(opts, extra...)...)
}

func TestRegisterAndLogin(t *testing.T) {
	f := setupFixture(t)
	accounts := newAccounts(f)

	user, err := accounts.Register(f.ctx, service.RegisterInput{
		Email:     "  Marta@Example.com ",
		Password:  "correct-horse",
		Name:      "Marta",
		BloodType: "o-",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Email != "marta@example.com" || user.BloodType != "O-" || user.Role != models.RoleDonor {
		t.Errorf("unexpected user %+v", user)
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("expected password to be hashed")
	}

	got, err := accounts.Login(f.ctx, "MARTA@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected %s, got %s", user.ID, got.ID)
	}

	if _, err := accounts.Login(f.ctx, "marta@example.com", "wrong-password"); !apperr.IsKind(err, apperr.KindAuthentication) {
		t.Errorf("expected authentication error, got %v", err)
	}
	if _, err := accounts.Login(f.ctx, "nobody@example.com", "correct-horse"); !apperr.IsKind(err, apperr.KindAuthentication) {
		t.Errorf("expected authentication error, got %v", err)
	}

	profile, err := accounts.Profile(f.ctx, user.ID)
	if err != nil || profile.Name != "Marta" {
		t.Errorf("unexpected profile %+v, %v", profile, err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := setupFixture(t)
	accounts := newAccounts(f)
	in := service.RegisterInput{Email: "pau@example.com", Password: "12345678", Name: "Pau"}

	if _, err := accounts.Register(f.ctx, in); err != nil {
		t.Fatal(err)
	}
	in.Email = "PAU@example.com"
	_, err := accounts.Register(f.ctx, in)
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.KindConflict || e.Field != "email" {
		t.Errorf("expected email conflict, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := setupFixture(t)
	accounts := newAccounts(f)

	tests := []struct {
		name  string
		in    service.RegisterInput
		field string
	}{
		{"bad email", service.RegisterInput{Email: "not-an-email", Password: "12345678", Name: "A"}, "email"},
		{"short password", service.RegisterInput{Email: "a@example.com", Password: "short", Name: "A"}, "password"},
		{"missing name", service.RegisterInput{Email: "a@example.com", Password: "12345678", Name: "  "}, "name"},
		{"bad blood type", service.RegisterInput{Email: "a@example.com", Password: "12345678", Name: "A", BloodType: "C+"}, "bloodType"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := accounts.Register(f.ctx, tt.in)
			assertValidation(t, err, tt.field)
		})
	}
}

func TestRegisterStaffEmail(t *testing.T) {
	f := setupFixture(t)
	accounts := newAccounts(f, service.WithStaffEmails([]string{"nurse@bank.test"}))

	user, err := accounts.Register(f.ctx, service.RegisterInput{Email: "Nurse@bank.test", Password: "12345678", Name: "Nurse"})
	if err != nil {
		t.Fatal(err)
	}
	if user.Role != models.RoleStaff {
		t.Errorf("expected staff role, got %s", user.Role)
	}
}
