package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Friend relationship statuses as stored inside a user's Friends list.
const (
	FriendStatusRequestSent     = "request_sent"
	FriendStatusRequestReceived = "request_received"
	FriendStatusAccepted        = "accepted"
	FriendStatusBlocked         = "blocked"
)

// FriendEntry is one element of a user's Friends JSON list. Each side of a
// relationship keeps its own entry, so A's list says request_sent while B's
// says request_received.
type FriendEntry struct {
	UserID    uint      `json:"userID"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type User struct {
	gorm.Model
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email" gorm:"uniqueIndex"`
	Password       string `json:"-"`
	SocialLogin    bool   `json:"socialLogin"`
	SocialProvider string `json:"socialProvider"`
	AvatarURL      string `json:"avatarURL"`
	Bio            string `json:"bio" gorm:"size:500"`
	Role           string `json:"role" gorm:"type:varchar(20);default:user;index"` // user, admin

	Exp                 int `json:"exp"`
	UnreadNotifications int `json:"unreadNotifications" gorm:"default:0"`

	Friends             datatypes.JSON `json:"friends"`
	PushTokens          datatypes.JSON `json:"pushTokens"`
	MutedGroups         datatypes.JSON `json:"mutedGroups"`
	MutedTypes          datatypes.JSON `json:"mutedTypes"`
	CompletedTrips      datatypes.JSON `json:"completedTrips"`
	AllowsNotifications *bool          `json:"allowsNotifications"`
}

// FriendList decodes the Friends JSON column. A nil column decodes to an
// empty list.
func (u *User) FriendList() []FriendEntry {
	var entries []FriendEntry
	if u.Friends != nil {
		_ = json.Unmarshal(u.Friends, &entries)
	}
	return entries
}

// SetFriendList encodes entries back into the Friends column.
func (u *User) SetFriendList(entries []FriendEntry) {
	raw, _ := json.Marshal(entries)
	u.Friends = datatypes.JSON(raw)
}

// FriendEntryFor returns this user's entry for the given peer, if any.
func (u *User) FriendEntryFor(peerID uint) (FriendEntry, bool) {
	for _, e := range u.FriendList() {
		if e.UserID == peerID {
			return e, true
		}
	}
	return FriendEntry{}, false
}

// PushTokenList decodes the PushTokens JSON column.
func (u *User) PushTokenList() []string {
	var tokens []string
	if u.PushTokens != nil {
		_ = json.Unmarshal(u.PushTokens, &tokens)
	}
	return tokens
}

// SetPushTokenList encodes tokens into the PushTokens column.
func (u *User) SetPushTokenList(tokens []string) {
	raw, _ := json.Marshal(tokens)
	u.PushTokens = datatypes.JSON(raw)
}

// MutedGroupList decodes the MutedGroups JSON column.
func (u *User) MutedGroupList() []uint {
	var ids []uint
	if u.MutedGroups != nil {
		_ = json.Unmarshal(u.MutedGroups, &ids)
	}
	return ids
}

// MutedTypeList decodes the MutedTypes JSON column.
func (u *User) MutedTypeList() []string {
	var types []string
	if u.MutedTypes != nil {
		_ = json.Unmarshal(u.MutedTypes, &types)
	}
	return types
}

// CompletedTripList decodes the CompletedTrips JSON column.
func (u *User) CompletedTripList() []uint {
	var ids []uint
	if u.CompletedTrips != nil {
		_ = json.Unmarshal(u.CompletedTrips, &ids)
	}
	return ids
}

// SetCompletedTripList encodes ids into the CompletedTrips column.
func (u *User) SetCompletedTripList(ids []uint) {
	raw, _ := json.Marshal(ids)
	u.CompletedTrips = datatypes.JSON(raw)
}

// Custom JSON marshaling so JSON columns come out as arrays, not raw bytes
func (u *User) MarshalJSON() ([]byte, error) {
	type Alias User
	aux := &struct {
		Friends        []FriendEntry `json:"friends"`
		PushTokens     []string      `json:"pushTokens"`
		MutedGroups    []uint        `json:"mutedGroups"`
		MutedTypes     []string      `json:"mutedTypes"`
		CompletedTrips []uint        `json:"completedTrips"`
		*Alias
	}{
		Friends:        []FriendEntry{},
		PushTokens:     []string{},
		MutedGroups:    []uint{},
		MutedTypes:     []string{},
		CompletedTrips: []uint{},
		Alias:          (*Alias)(u),
	}

	if entries := u.FriendList(); entries != nil {
		aux.Friends = entries
	}
	if tokens := u.PushTokenList(); tokens != nil {
		aux.PushTokens = tokens
	}
	if ids := u.MutedGroupList(); ids != nil {
		aux.MutedGroups = ids
	}
	if types := u.MutedTypeList(); types != nil {
		aux.MutedTypes = types
	}
	if ids := u.CompletedTripList(); ids != nil {
		aux.CompletedTrips = ids
	}

	return json.Marshal(aux)
}

// FullName is used in notification bodies.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
