package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Notification types. The column is an open string so new types don't need a
// migration; these constants cover everything the backend emits today.
const (
	NotifFriendRequest       = "friend_request"
	NotifFriendAccept        = "friend_accept"
	NotifGroupInvite         = "group_invite"
	NotifGroupInviteAccepted = "group_invite_accepted"
	NotifGroupJoinRequest    = "group_join_request"
	NotifGroupJoinApproved   = "group_join_approved"
	NotifGroupJoined         = "group_joined"
	NotifGroupUpdated        = "group_updated"
	NotifPostLike            = "post_like"
	NotifPostComment         = "post_comment"
	NotifCommentLike         = "comment_like"
	NotifPostShared          = "post_shared"
	NotifPostSharedInGroup   = "post_shared_in_group"
	NotifPostCreateInGroup   = "post_create_in_group"
	NotifReportCreated       = "report_created"
	NotifTripCompleted       = "trip_completed"
)

// Reference types for RefType/RefID, the subject a notification points at.
const (
	RefGroup = "group"
	RefPost  = "post"
	RefTrip  = "trip"
	RefUser  = "user"
)

// Notification is a persisted in-app notification. RefType/RefID identify the
// subject entity for de-duplication and cascade deletes; Data carries extra
// deep-linking context for the client.
type Notification struct {
	ID   uint  `json:"id" gorm:"primaryKey"`
	ToID uint  `json:"toID" gorm:"not null;index"`
	To   User  `json:"-" gorm:"foreignKey:ToID"`

	FromID *uint `json:"fromID" gorm:"index"`
	From   *User `json:"from" gorm:"foreignKey:FromID"`

	Type  string `json:"type" gorm:"size:32;index"`
	Title string `json:"title" gorm:"size:100"`
	Body  string `json:"body" gorm:"size:500"`

	RefType string         `json:"refType" gorm:"size:32;index"`
	RefID   uint           `json:"refID" gorm:"index"`
	Data    datatypes.JSON `json:"data"`

	Read      bool       `json:"read" gorm:"default:false"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt"`
}

// DataMap decodes the Data JSON column for push payloads.
func (n *Notification) DataMap() map[string]string {
	out := map[string]string{}
	if n.Data != nil {
		_ = json.Unmarshal(n.Data, &out)
	}
	return out
}
