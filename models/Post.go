package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Post is a feed post, optionally scoped to a group. Likes/Saves/Shares are
// JSON sets of user ids; OriginalPostID tracks sharing lineage.
type Post struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	AuthorID uint `json:"authorID" gorm:"not null;index"`
	Author   User `json:"author" gorm:"foreignKey:AuthorID"`

	GroupID *uint  `json:"groupID" gorm:"index"`
	Group   *Group `json:"group" gorm:"foreignKey:GroupID"`

	Content string         `json:"content" gorm:"type:text"`
	Images  datatypes.JSON `json:"images"`

	Likes  datatypes.JSON `json:"likes"`
	Saves  datatypes.JSON `json:"saves"`
	Shares datatypes.JSON `json:"shares"`

	OriginalPostID *uint `json:"originalPostID" gorm:"index"`
	OriginalPost   *Post `json:"originalPost" gorm:"foreignKey:OriginalPostID"`

	IsPrivate bool `json:"isPrivate"`

	Comments []Comment `json:"comments" gorm:"foreignKey:PostID"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Comment belongs to a post and carries its own liked-by set.
type Comment struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	PostID   uint `json:"postID" gorm:"not null;index"`
	AuthorID uint `json:"authorID" gorm:"not null;index"`
	Author   User `json:"author" gorm:"foreignKey:AuthorID"`

	Content string         `json:"content" gorm:"size:1000"`
	Likes   datatypes.JSON `json:"likes"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DecodeIDSet unpacks a JSON []uint column.
func DecodeIDSet(raw datatypes.JSON) []uint {
	var ids []uint
	if raw != nil {
		_ = json.Unmarshal(raw, &ids)
	}
	return ids
}

// EncodeIDSet packs a []uint into a JSON column.
func EncodeIDSet(ids []uint) datatypes.JSON {
	raw, _ := json.Marshal(ids)
	return datatypes.JSON(raw)
}

// DecodeStringList unpacks a JSON []string column.
func DecodeStringList(raw datatypes.JSON) []string {
	var list []string
	if raw != nil {
		_ = json.Unmarshal(raw, &list)
	}
	return list
}

// EncodeStringList packs a []string into a JSON column.
func EncodeStringList(list []string) datatypes.JSON {
	raw, _ := json.Marshal(list)
	return datatypes.JSON(raw)
}

// IDSetContains reports whether id is in the set.
func IDSetContains(raw datatypes.JSON, id uint) bool {
	for _, v := range DecodeIDSet(raw) {
		if v == id {
			return true
		}
	}
	return false
}

// IDSetAdd returns the set with id added (no duplicates).
func IDSetAdd(raw datatypes.JSON, id uint) datatypes.JSON {
	ids := DecodeIDSet(raw)
	for _, v := range ids {
		if v == id {
			return raw
		}
	}
	return EncodeIDSet(append(ids, id))
}

// IDSetRemove returns the set with id removed.
func IDSetRemove(raw datatypes.JSON, id uint) datatypes.JSON {
	ids := DecodeIDSet(raw)
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return EncodeIDSet(out)
}
