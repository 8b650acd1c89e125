package service

import (
	"regexp"
	"testing"
	"time"
)

func TestConfirmationCodeFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^BD-[0-9A-Z]+-[0-9A-F]{8}$`)
	seen := map[string]bool{}
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		code, err := newConfirmationCode(now)
		if err != nil {
			t.Fatal(err)
		}
		if !pattern.MatchString(code) {
			t.Fatalf("unexpected code %q", code)
		}
		if seen[code] {
			t.Fatalf("duplicate code %q", code)
		}
		seen[code] = true
	}
}

func TestRedemptionCodeFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^RW-[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}$`)
	for i := 0; i < 100; i++ {
		code, err := newRedemptionCode()
		if err != nil {
			t.Fatal(err)
		}
		if !pattern.MatchString(code) {
			t.Fatalf("unexpected code %q", code)
		}
	}
}
