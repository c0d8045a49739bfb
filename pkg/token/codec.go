// Package token turns a Claim into an opaque, URL-safe string and back.
//
// A token is built as:
//
//	base64url(encrypt(json(claim)))
//
// Redeeming checks, in order, that the string decodes and decrypts, that
// the plaintext is exactly a Claim (no missing, extra or mistyped fields)
// and that the claim has not expired. Malformed tokens fail with
// ErrInvalidToken and expired ones with ErrTokenExpired so callers can
// answer them differently.
package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

var encoding = base64.RawURLEncoding.Strict()

// Claim is the payload carried inside a token.
type Claim struct {
	Subject   string    `json:"subject" validate:"required,email"`
	ExpiresAt time.Time `json:"expiresAt" validate:"required"`
}

// claimFields is the exact set of keys a serialized Claim may contain.
var claimFields = map[string]struct{}{"subject": {}, "expiresAt": {}}

// wireClaim uses pointers so missing fields can be told apart from zero values
type wireClaim struct {
	Subject   *string    `json:"subject"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// Encrypter is the symmetric cipher tokens are sealed with.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type Codec struct {
	cipher   Encrypter
	validate *validator.Validate
	now      func() time.Time
}

type Option func(*Codec)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func NewCodec(cipher Encrypter, opts ...Option) *Codec {
	c := &Codec{
		cipher:   cipher,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}

	for _, o := range opts {
		o(c)
	}

	return c
}

// Now returns the current time as seen by the codec.
func (c *Codec) Now() time.Time {
	return c.now()
}

func (c *Codec) Issue(claim Claim) (string, error) {
	claim.ExpiresAt = claim.ExpiresAt.UTC()

	if err := c.validate.Struct(claim); err != nil {
		return "", fmt.Errorf("invalid claim, %w", err)
	}

	b, err := json.Marshal(claim)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claim, %w", err)
	}

	ct, err := c.cipher.Encrypt(string(b))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt claim, %w", err)
	}

	return encoding.EncodeToString([]byte(ct)), nil
}

func (c *Codec) Redeem(token string) (Claim, error) {
	raw, err := Unescape(token)
	if err != nil {
		return Claim{}, err
	}

	ct, err := encoding.DecodeString(raw)
	if err != nil {
		return Claim{}, fmt.Errorf("%w: malformed encoding", ErrInvalidToken)
	}

	plain, err := c.cipher.Decrypt(string(ct))
	if err != nil {
		return Claim{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claim, err := c.parse([]byte(plain))
	if err != nil {
		return Claim{}, err
	}

	if !c.now().Before(claim.ExpiresAt) {
		return Claim{}, ErrTokenExpired
	}

	return claim, nil
}

func (c *Codec) parse(b []byte) (Claim, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return Claim{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if len(fields) != len(claimFields) {
		return Claim{}, fmt.Errorf("%w: expected %d fields, got %d", ErrInvalidToken, len(claimFields), len(fields))
	}

	for k := range fields {
		if _, ok := claimFields[k]; !ok {
			return Claim{}, fmt.Errorf("%w: unexpected field %q", ErrInvalidToken, k)
		}
	}

	var w wireClaim
	if err := json.Unmarshal(b, &w); err != nil {
		return Claim{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if w.Subject == nil || w.ExpiresAt == nil {
		return Claim{}, fmt.Errorf("%w: missing field", ErrInvalidToken)
	}

	claim := Claim{Subject: *w.Subject, ExpiresAt: *w.ExpiresAt}
	if err := c.validate.Struct(claim); err != nil {
		return Claim{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return claim, nil
}

// Unescape reverses the percent-encoding applied when a token is put in a
// link. Tokens that were never escaped come back unchanged.
func Unescape(token string) (string, error) {
	raw, err := url.PathUnescape(token)
	if err != nil || raw == "" {
		return "", fmt.Errorf("%w: malformed escaping", ErrInvalidToken)
	}

	return raw, nil
}
