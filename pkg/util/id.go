// Package util contains any functions used across the application that don't match
// any other package
package util

import gonanoid "github.com/matoous/go-nanoid/v2"

const (
	idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	idLength  = 16
)

// NewID generates the random ID used as primary key for users, projects,
// forms and submissions
func NewID() (string, error) {
	return gonanoid.Generate(idCharset, idLength)
}
