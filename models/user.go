package models

import (
	"time"
)

// User owns receipts and uploads.
type User struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time `gorm:"index"`
	Username       string     `gorm:"size:255;not null;unique"`
	HashedPassword []byte     `gorm:"not null" json:"-"`
	Receipts       []Receipt  `json:"-"`
	RoleID         *uint `gorm:"index"`
	Role           Role  `gorm:"foreignKey:RoleID;references:ID"`
}

// Role names seeded at startup.
const (
	RoleAdministrator = "administrator"
	RoleUser          = "user"
)

// IsAdmin reports whether the user's role is administrator.
func (u User) IsAdmin() bool {
	return u.Role.Name == RoleAdministrator
}
