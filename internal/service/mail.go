package service

import (
	"errors"
	"fmt"

	v "github.com/spf13/viper"
	"gopkg.in/gomail.v2"
)

var ErrSameAddress = errors.New("recipient can't be the sender address")

// Sender delivers a single html email.
type Sender interface {
	Send(to, subject, html string) error
}

// dialer is the part of gomail.Dialer the Mailer uses
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	from   string
	dialer dialer
}

func NewMailer(host string, port int, username, password, from string) *Mailer {
	return &Mailer{
		from:   from,
		dialer: gomail.NewDialer(host, port, username, password),
	}
}

// NewMailerFromConfig builds a Mailer out of the mail.* config keys.
func NewMailerFromConfig() *Mailer {
	username := v.GetString("mail.username")
	if username == "" {
		username = v.GetString("mail.sender")
	}

	return NewMailer(
		v.GetString("mail.host"),
		v.GetInt("mail.port"),
		username,
		v.GetString("mail.password"),
		v.GetString("mail.sender"),
	)
}

func (m *Mailer) Send(to, subject, html string) error {
	if to == m.from {
		return ErrSameAddress
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail, %w", err)
	}

	return nil
}
