// Package verification implements the token flows that prove ownership of
// an email address: email verification, email change confirmation and
// password reset.
//
// A flow issues an encrypted, expiring token, records it in an ephemeral
// store and mails a link carrying it. Redeeming the link checks the token
// and takes its record out of the store, so every token can be used once.
package verification

import (
	"context"
	"easyforms/forms-api/internal/metrics"
	"easyforms/forms-api/internal/service"
	"easyforms/forms-api/internal/store"
	"easyforms/forms-api/pkg/token"
	"errors"
	"fmt"
	"net/url"
	"time"
)

type Kind string

const (
	EmailVerification Kind = "email_verification"
	EmailUpdate       Kind = "email_update"
	PasswordReset     Kind = "password_reset"
)

type Config struct {
	// Lifetime is used for both the claim expiry and the store TTL
	Lifetime time.Duration
	// LinkBase is the URL the token is appended to as ?token=
	LinkBase string
	Email    service.EmailContent
}

// Receipt describes an issued token.
type Receipt struct {
	Token     string
	Link      string
	Recipient string
	ExpiresAt time.Time
}

// Redemption is what a valid token resolves to. Value is whatever was
// stored on Start, which is the subject unless the flow carried extra data.
type Redemption struct {
	Subject string
	Value   string
}

// Mutator applies the change a token authorizes. It runs after the token
// record has been deleted.
type Mutator func(ctx context.Context, r *Redemption) error

type Flow struct {
	kind   Kind
	cfg    Config
	codec  *token.Codec
	store  store.Store
	sender service.Sender
}

func New(kind Kind, cfg Config, codec *token.Codec, st store.Store, sender service.Sender) (*Flow, error) {
	if cfg.Lifetime <= 0 {
		return nil, ErrNoLifetime
	}

	if cfg.LinkBase == "" {
		return nil, ErrNoLinkBase
	}

	return &Flow{
		kind:   kind,
		cfg:    cfg,
		codec:  codec,
		store:  st,
		sender: sender,
	}, nil
}

func (f *Flow) Kind() Kind {
	return f.kind
}

func (f *Flow) Lifetime() time.Duration {
	return f.cfg.Lifetime
}

// Start issues a token for subject, records it and mails the link to the
// subject. value is stored alongside the token and defaults to subject.
//
// When only the mail fails the receipt is still returned together with an
// error wrapping ErrDelivery; the token stays redeemable.
func (f *Flow) Start(ctx context.Context, subject, value string) (*Receipt, error) {
	if value == "" {
		value = subject
	}

	expiresAt := f.codec.Now().Add(f.cfg.Lifetime)

	tok, err := f.codec.Issue(token.Claim{Subject: subject, ExpiresAt: expiresAt})
	if err != nil {
		f.count("start", "error")
		return nil, fmt.Errorf("failed to issue token, %w", err)
	}

	if err := f.store.Set(ctx, tok, value, f.cfg.Lifetime); err != nil {
		f.count("start", "error")
		return nil, fmt.Errorf("failed to record token, %w", err)
	}

	r := &Receipt{
		Token:     tok,
		Link:      f.cfg.LinkBase + "?token=" + url.QueryEscape(tok),
		Recipient: subject,
		ExpiresAt: expiresAt,
	}

	html, err := service.RenderEmail(f.cfg.Email, r.Link)
	if err != nil {
		f.count("start", "error")
		return r, fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	if err := f.sender.Send(subject, f.cfg.Email.Subject, html); err != nil {
		f.count("start", "undelivered")
		return r, fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	f.count("start", "ok")
	return r, nil
}

// Check validates tok and returns what it resolves to without using it up.
func (f *Flow) Check(ctx context.Context, tok string) (*Redemption, error) {
	claim, key, err := f.redeem(tok)
	if err != nil {
		f.count("check", result(err))
		return nil, err
	}

	value, err := f.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = ErrTokenNotFound
		}

		f.count("check", result(err))
		return nil, err
	}

	f.count("check", "ok")
	return &Redemption{Subject: claim.Subject, Value: value}, nil
}

// Consume validates tok, deletes its record and then runs apply. The
// record is gone before apply runs, so a failed apply can't be replayed
// with the same token; its error comes back wrapped in ErrPersistence.
// Of several concurrent Consume calls for one token at most one gets to
// run apply, the others fail with ErrTokenNotFound.
func (f *Flow) Consume(ctx context.Context, tok string, apply Mutator) (*Redemption, error) {
	claim, key, err := f.redeem(tok)
	if err != nil {
		f.count("consume", result(err))
		return nil, err
	}

	value, err := f.store.Take(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = ErrTokenNotFound
		}

		f.count("consume", result(err))
		return nil, err
	}

	r := &Redemption{Subject: claim.Subject, Value: value}

	if apply != nil {
		if err := apply(ctx, r); err != nil {
			f.count("consume", "persistence_error")
			return r, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}

	f.count("consume", "ok")
	return r, nil
}

// redeem decodes tok and returns its claim and the store key it was
// recorded under.
func (f *Flow) redeem(tok string) (token.Claim, string, error) {
	claim, err := f.codec.Redeem(tok)
	if err != nil {
		return token.Claim{}, "", err
	}

	key, err := token.Unescape(tok)
	if err != nil {
		return token.Claim{}, "", err
	}

	return claim, key, nil
}

func (f *Flow) count(op, res string) {
	metrics.TokenOperations.WithLabelValues(string(f.kind), op, res).Inc()
}

func result(err error) string {
	switch {
	case errors.Is(err, token.ErrInvalidToken):
		return "invalid"
	case errors.Is(err, token.ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenNotFound):
		return "not_found"
	default:
		return "error"
	}
}
