package routes

import (
	"github.com/HikeMeet/HikeMeet-Backend-sub000/models"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/services"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/utils"

	"github.com/kataras/iris/v12"
)

// AdminListUsers pages all users for the admin panel.
func AdminListUsers(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	size := ctx.URLParamIntDefault("size", 20)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	q := storage.DB.Model(&models.User{})
	if role := ctx.URLParam("role"); role != "" {
		q = q.Where("role = ?", role)
	}

	var total int64
	q.Count(&total)

	var users []models.User
	q.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&users)

	utils.JSONPage(ctx, users, page, size, total)
}

func AdminGetUser(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid user id.", ctx)
		return
	}

	var user models.User
	if err := storage.DB.First(&user, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(iris.Map{"user": &user})
}

type ChangeRoleInput struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

func AdminChangeRole(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid user id.", ctx)
		return
	}
	if id == claims.ID {
		utils.CreateConflict(ctx, "You cannot change your own role.")
		return
	}

	var input ChangeRoleInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var user models.User
	if err := storage.DB.First(&user, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	before := user.Role
	if err := storage.DB.Model(&user).Update("role", input.Role).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "user.role_change", "user", user.ID,
		iris.Map{"role": before}, iris.Map{"role": input.Role})
	ctx.JSON(iris.Map{"updated": true})
}

// AdminDeleteUser removes any account except the admin's own.
func AdminDeleteUser(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid user id.", ctx)
		return
	}
	if id == claims.ID {
		utils.CreateConflict(ctx, "You cannot delete your own account.")
		return
	}

	var user models.User
	if err := storage.DB.First(&user, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	utils.Audit(ctx, "user.delete", "user", user.ID, &user, nil)
	deleteUserCascade(&user)

	ctx.JSON(iris.Map{"deleted": true})
}

// deleteUserCascade removes a user and everything they touch: groups they
// created are torn down, elsewhere they just leave; posts and comments go
// with them, friend entries on other users are trimmed, and notifications to
// or from them are deleted with counter correction.
func deleteUserCascade(user *models.User) {
	id := user.ID

	var created []models.Group
	storage.DB.Where("creator_id = ?", id).Find(&created)
	for i := range created {
		unlock := utils.Locks.Lock(utils.GroupKey(created[i].ID))
		deleteGroupCascade(&created[i])
		unlock()
	}
	storage.DB.Where("user_id = ?", id).Delete(&models.GroupMember{})
	storage.DB.Where("user_id = ?", id).Delete(&models.GroupPending{})

	var posts []models.Post
	storage.DB.Where("author_id = ?", id).Find(&posts)
	for i := range posts {
		deletePostCascade(&posts[i])
	}
	storage.DB.Where("author_id = ?", id).Delete(&models.Comment{})

	var others []models.User
	storage.DB.Where("friends IS NOT NULL AND id <> ?", id).Find(&others)
	for i := range others {
		entries := others[i].FriendList()
		trimmed := entries[:0]
		for _, e := range entries {
			if e.UserID != id {
				trimmed = append(trimmed, e)
			}
		}
		if len(trimmed) != len(entries) {
			others[i].SetFriendList(trimmed)
			storage.DB.Model(&others[i]).Update("friends", others[i].Friends)
		}
	}

	ns := services.NewNotificationService()
	var inbound []models.Notification
	storage.DB.Where("to_id = ? OR from_id = ?", id, id).Find(&inbound)
	for i := range inbound {
		ns.Delete(&inbound[i])
	}

	storage.DB.Unscoped().Delete(user)
}

// AdminDeleteGroup lets a platform admin tear down any group.
func AdminDeleteGroup(ctx iris.Context) {
	id, ok := groupIDParam(ctx)
	if !ok {
		return
	}

	unlock := utils.Locks.Lock(utils.GroupKey(id))
	defer unlock()

	group, found := findGroup(ctx, id)
	if !found {
		return
	}

	utils.Audit(ctx, "group.delete", "group", group.ID, &group, nil)
	deleteGroupCascade(&group)
	ctx.JSON(iris.Map{"deleted": true})
}

// AdminStats returns the dashboard counters.
func AdminStats(ctx iris.Context) {
	var users, trips, groups, activeGroups, posts, openReports int64
	storage.DB.Model(&models.User{}).Count(&users)
	storage.DB.Model(&models.Trip{}).Count(&trips)
	storage.DB.Model(&models.Group{}).Count(&groups)
	storage.DB.Model(&models.Group{}).Where("status = ?", models.GroupStatusActive).Count(&activeGroups)
	storage.DB.Model(&models.Post{}).Count(&posts)
	storage.DB.Model(&models.Report{}).Where("status = ?", "open").Count(&openReports)

	ctx.JSON(iris.Map{
		"users":        users,
		"trips":        trips,
		"groups":       groups,
		"activeGroups": activeGroups,
		"posts":        posts,
		"openReports":  openReports,
	})
}

// AdminListAuditLog pages the audit trail.
func AdminListAuditLog(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	size := ctx.URLParamIntDefault("size", 50)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 50
	}

	var total int64
	storage.DB.Model(&models.AuditLog{}).Count(&total)

	var entries []models.AuditLog
	storage.DB.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&entries)

	utils.JSONPage(ctx, entries, page, size, total)
}
