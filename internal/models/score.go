package models

import (
	"time"

	"gorm.io/gorm"
)

// SavedScore is a score kept in the library
type SavedScore struct {
	ID        uint           `gorm:"primarykey" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	PublicID  string         `gorm:"uniqueIndex;not null" json:"id"`
	SessionID string         `gorm:"index" json:"session_id,omitempty"`
	Title     string         `json:"title"`
	Measures  int            `json:"measures"`
	XML       string         `gorm:"type:text;not null" json:"xml,omitempty"`
}

// ScoreSummary is a library listing entry without the document body
type ScoreSummary struct {
	PublicID  string    `json:"id"`
	Title     string    `json:"title"`
	Measures  int       `json:"measures"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *SavedScore) Summary() ScoreSummary {
	return ScoreSummary{
		PublicID:  s.PublicID,
		Title:     s.Title,
		Measures:  s.Measures,
		CreatedAt: s.CreatedAt,
	}
}
