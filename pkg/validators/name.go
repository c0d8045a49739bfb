package validators

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrNameEmpty    = errors.New("no name provided")
	ErrNameTooShort = errors.New("name must be at least 3 characters long")
	ErrNameTooLong  = errors.New("name must be at most 25 characters long")
	ErrNameInvalid  = errors.New("name may only contain letters, spaces and apostrophes")
)

var namePattern = regexp.MustCompile(`^[a-zA-Z'\s]*$`)

// NameValidator validates project, form and user names. Names are stored
// lowercased, so the normalized name is returned.
func NameValidator(n string) (string, error) {
	n = strings.ToLower(strings.TrimSpace(n))

	if n == "" {
		return "", ErrNameEmpty
	}

	if len(n) < 3 {
		return "", ErrNameTooShort
	}

	if len(n) > 25 {
		return "", ErrNameTooLong
	}

	if !namePattern.MatchString(n) {
		return "", ErrNameInvalid
	}

	return n, nil
}
