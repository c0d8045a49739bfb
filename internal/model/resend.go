package model

import "time"

// ResendRequest tracks explicit requests to resend the verification email
type ResendRequest struct {
	ID           int    `gorm:"primaryKey;autoIncrement"`
	UserID       string `gorm:"uniqueIndex"`
	LastResend   time.Time
	Count        int        // Resends inside the current window
	BlockedUntil *time.Time // If the user sends too many resend requests they're blocked for the day
}
