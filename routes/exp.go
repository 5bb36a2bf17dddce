package routes

import (
	"github.com/HikeMeet/HikeMeet-Backend-sub000/models"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"

	"gorm.io/gorm"
)

// Experience point rewards. Deletions claw the reward back, so the balance
// can go negative.
const (
	expGroupJoin     = 10
	expPostCreate    = 5
	expCommentCreate = 2
)

func awardExp(userID uint, delta int) {
	storage.DB.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("exp", gorm.Expr("exp + ?", delta))
}
