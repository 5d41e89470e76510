package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxMessageLength is the longest message text accepted.
const MaxMessageLength = 140

// Message is a short post ("warble") owned by a user.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:varchar(140);not null" json:"text"`
	Timestamp time.Time `gorm:"not null;index:idx_messages_user_timestamp,priority:2" json:"timestamp"`
	UserID    uint      `gorm:"not null;index:idx_messages_user_timestamp,priority:1" json:"user_id"`

	User  *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Likes []Like `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate stamps messages created without a timestamp.
func (m *Message) BeforeCreate(_ *gorm.DB) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return nil
}
