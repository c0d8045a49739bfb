// Package model defines database models
package model

import "time"

type User struct {
	ID            string     `gorm:"primaryKey" json:"-"`
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	EmailVerified bool       `gorm:"default:false" json:"emailVerified"`
	Hash          string     `gorm:"not null" json:"-"`
	Name          string     `json:"name"`
	CreatedAt     time.Time  `json:"created"`
	ExpiresAt     *time.Time `json:"-"` // Unverified accounts are removed after this

	Projects       []Project     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	ResendRequests ResendRequest `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
