package models

import (
	"time"

	"gorm.io/gorm"
)

// Report is an abuse/content report filed by a user. Creation notifies every
// admin; admins resolve or dismiss from the moderation panel.
type Report struct {
	gorm.Model
	ReporterID uint `json:"reporterID" gorm:"index;not null"`
	Reporter   User `json:"reporter" gorm:"foreignKey:ReporterID"`

	TargetType string `json:"targetType" gorm:"size:32;index"` // user, group, post, comment
	TargetID   uint   `json:"targetID" gorm:"index"`
	Reason     string `json:"reason" gorm:"type:text;not null"`

	Status     string     `json:"status" gorm:"size:16;index;default:open"` // open, resolved, dismissed
	ResolvedBy *uint      `json:"resolvedBy"`
	ResolvedAt *time.Time `json:"resolvedAt"`
}
