// Package models defines the persistent entities and application errors.
package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	DefaultImageURL       = "/static/images/default-pic.svg"
	DefaultHeaderImageURL = "/static/images/warbler-hero.svg"
)

// User is a Warbler account.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"uniqueIndex;not null" json:"username"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	Password       string    `gorm:"not null" json:"-"`
	ImageURL       string    `json:"image_url"`
	HeaderImageURL string    `json:"header_image_url"`
	Bio            string    `json:"bio"`
	Location       string    `json:"location"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Messages  []Message `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Following []User    `gorm:"-" json:"-"`
	Followers []User    `gorm:"-" json:"-"`
}

// BeforeSave fills in the default profile images.
func (u *User) BeforeSave(_ *gorm.DB) error {
	if u.ImageURL == "" {
		u.ImageURL = DefaultImageURL
	}
	if u.HeaderImageURL == "" {
		u.HeaderImageURL = DefaultHeaderImageURL
	}
	return nil
}

func (u *User) String() string {
	return fmt.Sprintf("<User #%d: %s, %s>", u.ID, u.Username, u.Email)
}

// IsFollowing reports whether u follows other, using the loaded Following list.
func (u *User) IsFollowing(other *User) bool {
	return containsUser(u.Following, other)
}

// IsFollowedBy reports whether other follows u, using the loaded Followers list.
func (u *User) IsFollowedBy(other *User) bool {
	return containsUser(u.Followers, other)
}

func containsUser(users []User, other *User) bool {
	if other == nil {
		return false
	}
	for i := range users {
		if users[i].ID == other.ID {
			return true
		}
	}
	return false
}

// UserStats are the counters shown in a profile sidebar.
type UserStats struct {
	Messages  int64
	Following int64
	Followers int64
	Likes     int64
}
