package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newConfirmationCode returns BD-<base36 millis>-<8 hex>, e.g.
// BD-M5X2K9A1-3F9C01AB.
func newConfirmationCode(now time.Time) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate confirmation code: %w", err)
	}
	stamp := strconv.FormatInt(now.UnixMilli(), 36)
	return "BD-" + strings.ToUpper(stamp) + "-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}

// newRedemptionCode returns RW-XXXX-XXXX drawn from an alphabet without
// look-alike characters.
func newRedemptionCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate redemption code: %w", err)
	}
	out := make([]byte, len(buf))
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return "RW-" + string(out[:4]) + "-" + string(out[4:]), nil
}
