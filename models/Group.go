package models

import "time"

// Group lifecycle statuses. The scheduled sweep moves groups forward as the
// underlying trip dates pass.
const (
	GroupStatusPlanned   = "planned"
	GroupStatusActive    = "active"
	GroupStatusCompleted = "completed"
)

// Group member roles.
const (
	GroupRoleAdmin     = "admin"
	GroupRoleCompanion = "companion"
)

// Pending entry origins.
const (
	PendingOriginInvite  = "invite"
	PendingOriginRequest = "request"
)

// Group is a hiking party attached to a trip. Confirmed members live in
// Members; proposals (admin invites, join requests on private groups) live in
// Pending. A user has at most one row across the two per group.
type Group struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	TripID    uint `json:"tripID" gorm:"not null;index"`
	Trip      Trip `json:"trip" gorm:"foreignKey:TripID"`
	CreatorID uint `json:"creatorID" gorm:"not null;index"`
	Creator   User `json:"creator" gorm:"foreignKey:CreatorID"`

	Name        string `json:"name" gorm:"size:80"`
	Description string `json:"description" gorm:"size:500"`
	Capacity    int    `json:"capacity"`
	Privacy     string `json:"privacy" gorm:"size:16;index"` // public | private
	Status      string `json:"status" gorm:"size:16;index"`  // planned | active | completed
	PhotoURL    string `json:"photoURL" gorm:"size:512"`

	Members []GroupMember  `json:"members" gorm:"foreignKey:GroupID"`
	Pending []GroupPending `json:"pending" gorm:"foreignKey:GroupID"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GroupMember is a confirmed membership row.
type GroupMember struct {
	ID      uint  `json:"id" gorm:"primaryKey"`
	GroupID uint  `json:"groupID" gorm:"not null;index"`
	Group   Group `json:"-" gorm:"foreignKey:GroupID"`

	UserID uint `json:"userID" gorm:"not null;index"`
	User   User `json:"user" gorm:"foreignKey:UserID"`

	Role     string    `json:"role" gorm:"size:16;index"` // admin | companion
	JoinedAt time.Time `json:"joinedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GroupPending is a membership proposal: an admin invite or, for private
// groups, a prospective member's join request.
type GroupPending struct {
	ID      uint  `json:"id" gorm:"primaryKey"`
	GroupID uint  `json:"groupID" gorm:"not null;index"`
	Group   Group `json:"-" gorm:"foreignKey:GroupID"`

	UserID uint `json:"userID" gorm:"not null;index"`
	User   User `json:"user" gorm:"foreignKey:UserID"`

	Origin string `json:"origin" gorm:"size:16;index"` // invite | request
	Status string `json:"status" gorm:"size:16"`       // pending

	// Set for invites: the admin who sent it, so acceptance can notify them.
	InviterID *uint `json:"inviterID"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
