package auth

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/dukerupert/magiclink/internal/clock"
)

const (
	// LinkExpiration is how long an issued magic link stays valid.
	LinkExpiration = 30 * time.Minute

	// MagicLinkParam is the query parameter carrying the encrypted claim.
	MagicLinkParam = "kodyKey"

	// MagicLinkPath is the route a magic link points at.
	MagicLinkPath = "magic"
)

// isoMillis matches JavaScript's Date.prototype.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Encrypter is the symmetric encryption a MagicLinks needs. Decrypt must
// fail on malformed or tampered input.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// MagicLinks issues and validates magic-link URLs. It holds no mutable state.
type MagicLinks struct {
	enc    Encrypter
	clock  clock.Clock
	logger *slog.Logger
}

func NewMagicLinks(enc Encrypter, clk clock.Clock, logger *slog.Logger) *MagicLinks {
	if enc == nil {
		panic("auth: nil Encrypter")
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MagicLinks{enc: enc, clock: clk, logger: logger}
}

// Issue returns a link under domainURL that carries an encrypted
// [emailAddress, expiresAt] claim valid for LinkExpiration.
func (m *MagicLinks) Issue(emailAddress, domainURL string) (string, error) {
	if emailAddress == "" {
		return "", invalidInput("Email address is required.", nil)
	}
	u, err := url.Parse(domainURL)
	if err != nil {
		return "", invalidInput("Invalid domain URL.", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", invalidInput("Invalid domain URL.", fmt.Errorf("%q is not an absolute URL", domainURL))
	}

	expiresAt := m.clock.Now().Add(LinkExpiration).UTC().Format(isoMillis)
	claim, err := json.Marshal([]string{emailAddress, expiresAt})
	if err != nil {
		return "", fmt.Errorf("encode claim: %w", err)
	}
	token, err := m.enc.Encrypt(string(claim))
	if err != nil {
		return "", fmt.Errorf("encrypt claim: %w", err)
	}

	u.Path = "/" + MagicLinkPath
	u.RawPath = ""
	u.RawQuery = url.Values{MagicLinkParam: {token}}.Encode()
	u.Fragment = ""
	return u.String(), nil
}

// Validate checks that link carries an unexpired claim for expectedEmail.
// It returns ErrExpiredLink for an authentic but stale link and
// ErrInvalidLink for every other failure; the specific cause is logged.
func (m *MagicLinks) Validate(expectedEmail, link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return m.invalid("parse link", err)
	}
	// A missing parameter decrypts as an empty token and fails below.
	token := u.Query().Get(MagicLinkParam)

	plaintext, err := m.enc.Decrypt(token)
	if err != nil {
		return m.invalid("decrypt token", err)
	}

	var claim []any
	if err := json.Unmarshal([]byte(plaintext), &claim); err != nil {
		return m.invalid("decode claim", err)
	}
	var email, expiration any
	if len(claim) > 0 {
		email = claim[0]
	}
	if len(claim) > 1 {
		expiration = claim[1]
	}

	emailStr, ok := email.(string)
	if !ok {
		return m.invalid("email is not a string", nil)
	}
	expirationStr, ok := expiration.(string)
	if !ok {
		return m.invalid("link expiration is not a string", nil)
	}
	if emailStr != expectedEmail {
		return m.invalid("link email does not match the pending login", nil)
	}

	expiresAt, err := time.Parse(time.RFC3339Nano, expirationStr)
	if err != nil {
		return m.invalid("parse link expiration", err)
	}
	if m.clock.Now().After(expiresAt) {
		m.logger.Info("magic link expired", "expired_at", expiresAt)
		return ErrExpiredLink
	}
	return nil
}

func (m *MagicLinks) invalid(reason string, err error) error {
	attrs := []any{"reason", reason}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	m.logger.Error("invalid magic link", attrs...)
	return ErrInvalidLink
}
