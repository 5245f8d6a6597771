package models

import (
	"time"
)

// Upload is a receipt image submitted by a user. A failed scan keeps the row
// (with the reason) so it can be retried or reviewed.
type Upload struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FileName    string `gorm:"size:255;not null"`
	StorePath   string `gorm:"column:store_path;size:512"` // relative to UPLOAD_BASE
	UserID      uint   `gorm:"index;not null"`
	User        User   `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ContentType string `gorm:"size:128"`
	ReceiptID   *uint  `gorm:"index"`
	Receipt     *Receipt `gorm:"foreignKey:ReceiptID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	Failed       bool   `gorm:"default:false;index"`
	FailedReason string `gorm:"size:255"`
	Attempts     int    `gorm:"not null;default:0"`
}
