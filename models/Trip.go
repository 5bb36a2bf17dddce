package models

import "time"

// Trip is a hike that groups organize around.
type Trip struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	CreatorID uint `json:"creatorID" gorm:"not null;index"`
	Creator   User `json:"creator" gorm:"foreignKey:CreatorID"`

	Name        string `json:"name" gorm:"size:100;not null"`
	Location    string `json:"location" gorm:"size:200"`
	Description string `json:"description" gorm:"type:text"`
	Difficulty  string `json:"difficulty" gorm:"size:16"` // easy, moderate, hard, expert
	DistanceKm  float64 `json:"distanceKm"`
	PhotoURL    string `json:"photoURL" gorm:"size:512"`

	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`

	Groups []Group `json:"groups" gorm:"foreignKey:TripID"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
