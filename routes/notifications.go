package routes

import (
	"encoding/json"

	"github.com/HikeMeet/HikeMeet-Backend-sub000/models"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/services"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/datatypes"
)

// GetNotifications pages the caller's notifications newest first.
func GetNotifications(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	page := ctx.URLParamIntDefault("page", 1)
	size := ctx.URLParamIntDefault("size", 20)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	var notifications []models.Notification
	storage.DB.Preload("From").
		Where("to_id = ?", claims.ID).
		Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&notifications)

	var total int64
	storage.DB.Model(&models.Notification{}).Where("to_id = ?", claims.ID).Count(&total)

	ctx.JSON(iris.Map{
		"notifications": notifications,
		"page":          page,
		"total":         total,
	})
}

// GetUnreadCount returns the denormalized counter off the user row, so the
// badge endpoint never scans the notifications table.
func GetUnreadCount(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var user models.User
	if err := storage.DB.Select("unread_notifications").First(&user, claims.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(iris.Map{"unread": user.UnreadNotifications})
}

func MarkNotificationRead(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid notification id.", ctx)
		return
	}

	var n models.Notification
	if err := storage.DB.First(&n, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if n.ToID != claims.ID {
		utils.CreateForbidden(ctx)
		return
	}

	if err := services.NewNotificationService().MarkRead(&n); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"read": true})
}

func MarkAllNotificationsRead(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	if err := services.NewNotificationService().MarkAllRead(claims.ID); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"read": true})
}

func DeleteNotification(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid notification id.", ctx)
		return
	}

	var n models.Notification
	if err := storage.DB.First(&n, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if n.ToID != claims.ID {
		utils.CreateForbidden(ctx)
		return
	}

	if err := services.NewNotificationService().Delete(&n); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"deleted": true})
}

func GetNotificationSettings(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var user models.User
	if err := storage.DB.First(&user, claims.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	allows := user.AllowsNotifications != nil && *user.AllowsNotifications
	mutedGroups := user.MutedGroupList()
	if mutedGroups == nil {
		mutedGroups = []uint{}
	}
	mutedTypes := user.MutedTypeList()
	if mutedTypes == nil {
		mutedTypes = []string{}
	}

	ctx.JSON(iris.Map{
		"allowsNotifications": allows,
		"mutedGroups":         mutedGroups,
		"mutedTypes":          mutedTypes,
	})
}

type NotificationSettingsInput struct {
	AllowsNotifications *bool     `json:"allowsNotifications"`
	MutedGroups         *[]uint   `json:"mutedGroups"`
	MutedTypes          *[]string `json:"mutedTypes"`
}

// UpdateNotificationSettings replaces whichever settings the body carries.
// Mute lists are whole-list replacements, matching how the client edits them.
func UpdateNotificationSettings(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input NotificationSettingsInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	unlock := utils.Locks.Lock(utils.UserKey(claims.ID))
	defer unlock()

	var user models.User
	if err := storage.DB.First(&user, claims.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	updates := map[string]interface{}{}
	if input.AllowsNotifications != nil {
		updates["allows_notifications"] = *input.AllowsNotifications
	}
	if input.MutedGroups != nil {
		raw, _ := json.Marshal(*input.MutedGroups)
		updates["muted_groups"] = datatypes.JSON(raw)
	}
	if input.MutedTypes != nil {
		raw, _ := json.Marshal(*input.MutedTypes)
		updates["muted_types"] = datatypes.JSON(raw)
	}
	if len(updates) == 0 {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Nothing to update.", ctx)
		return
	}

	if err := storage.DB.Model(&user).Updates(updates).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"updated": true})
}
