package validators

import (
	"errors"
	"regexp"
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordInvalid  = errors.New("password may only contain letters, numbers, spaces and !@#_$")
	ErrPasswordTooLong  = errors.New("password must be at most 24 characters long")
	ErrPasswordEmpty    = errors.New("no password provided")
	ErrPasswordMismatch = errors.New("password confirmation doesn't match")
)

var passwordPattern = regexp.MustCompile(`^[a-zA-Z0-9!@#_$\s]*$`)

func PasswordValidator(p string) error {
	if p == "" {
		return ErrPasswordEmpty
	}

	if len(p) < 8 {
		return ErrPasswordTooShort
	}

	if len(p) > 24 {
		return ErrPasswordTooLong
	}

	if !passwordPattern.MatchString(p) {
		return ErrPasswordInvalid
	}

	return nil
}

// ConfirmationValidator checks a password confirmation against the password.
func ConfirmationValidator(p, confirmation string) error {
	if err := PasswordValidator(confirmation); err != nil {
		return err
	}

	if p != confirmation {
		return ErrPasswordMismatch
	}

	return nil
}
