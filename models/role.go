package models

import "time"

// Role groups permissions. Only administrator and user exist.
type Role struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string `gorm:"size:32;uniqueIndex;not null"`
	Description string `gorm:"size:255"`
}

// DefaultRoles are created at startup when missing.
func DefaultRoles() []Role {
	return []Role{
		{Name: RoleAdministrator, Description: "Sees and manages every user's receipts"},
		{Name: RoleUser, Description: "Manages own receipts"},
	}
}
