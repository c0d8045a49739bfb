package model

import "time"

type Project struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;uniqueIndex:idx_project_author_name" json:"name"`
	AuthorID  string    `gorm:"not null;index;uniqueIndex:idx_project_author_name" json:"-"`
	CreatedAt time.Time `json:"created"`

	Forms []Form `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"forms"`
}

type Form struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;uniqueIndex:idx_form_project_name" json:"name"`
	AuthorID  string    `gorm:"not null;index" json:"-"`
	ProjectID string    `gorm:"not null;uniqueIndex:idx_form_project_name" json:"project"`
	CreatedAt time.Time `json:"created"`

	Inbox []Submission `gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE" json:"inbox,omitempty"`
}

// Submission is a single message posted to a form
type Submission struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	FormID    string    `gorm:"not null;index" json:"-"`
	Data      Payload   `json:"data"`
	Opened    bool      `gorm:"default:false" json:"opened"`
	Resolved  bool      `gorm:"default:false" json:"resolved"`
	CreatedAt time.Time `json:"created"`
}
