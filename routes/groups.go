package routes

import (
	"strconv"
	"time"

	"github.com/HikeMeet/HikeMeet-Backend-sub000/models"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/services"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/utils"

	"github.com/kataras/iris/v12"
)

type CreateGroupInput struct {
	TripID      uint   `json:"tripID" validate:"required"`
	Name        string `json:"name" validate:"required,max=80"`
	Description string `json:"description" validate:"max=500"`
	Capacity    int    `json:"capacity"`
	Privacy     string `json:"privacy"` // public | private
}

func groupIDParam(ctx iris.Context) (uint, bool) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid group id.", ctx)
		return 0, false
	}
	return id, true
}

func findGroup(ctx iris.Context, id uint) (models.Group, bool) {
	var group models.Group
	if err := storage.DB.Preload("Trip").First(&group, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return group, false
	}
	return group, true
}

func memberRow(groupID, userID uint) (models.GroupMember, bool) {
	var member models.GroupMember
	err := storage.DB.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	return member, err == nil
}

func pendingRow(groupID, userID uint) (models.GroupPending, bool) {
	var pending models.GroupPending
	err := storage.DB.Where("group_id = ? AND user_id = ?", groupID, userID).First(&pending).Error
	return pending, err == nil
}

func groupAdmins(groupID uint) []models.GroupMember {
	var admins []models.GroupMember
	storage.DB.Where("group_id = ? AND role = ?", groupID, models.GroupRoleAdmin).Find(&admins)
	return admins
}

func isGroupAdmin(groupID, userID uint) bool {
	member, found := memberRow(groupID, userID)
	return found && member.Role == models.GroupRoleAdmin
}

// addMember inserts a companion row unless the user is already a member, so
// approval and invite acceptance stay idempotent.
func addMember(groupID, userID uint, role string) bool {
	if _, found := memberRow(groupID, userID); found {
		return false
	}
	storage.DB.Create(&models.GroupMember{
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now(),
	})
	return true
}

// groupFull reports whether the group hit its capacity. Zero means unlimited.
func groupFull(group *models.Group) bool {
	if group.Capacity <= 0 {
		return false
	}
	var count int64
	storage.DB.Model(&models.GroupMember{}).Where("group_id = ?", group.ID).Count(&count)
	return count >= int64(group.Capacity)
}

func uintStr(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func CreateGroup(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input CreateGroupInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var trip models.Trip
	if err := storage.DB.First(&trip, input.TripID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	privacy := input.Privacy
	if privacy != "private" {
		privacy = "public"
	}

	group := models.Group{
		TripID:      input.TripID,
		CreatorID:   claims.ID,
		Name:        input.Name,
		Description: input.Description,
		Capacity:    input.Capacity,
		Privacy:     privacy,
		Status:      models.GroupStatusPlanned,
	}
	if err := storage.DB.Create(&group).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	// Creator joins immediately as the sole admin
	storage.DB.Create(&models.GroupMember{
		GroupID:  group.ID,
		UserID:   claims.ID,
		Role:     models.GroupRoleAdmin,
		JoinedAt: time.Now(),
	})

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"group": group})
}

func GetGroup(ctx iris.Context) {
	id, ok := groupIDParam(ctx)
	if !ok {
		return
	}

	var group models.Group
	if err := storage.DB.Preload("Trip").Preload("Members").Preload("Members.User").
		First(&group, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(iris.Map{"group": group})
}

func ListMyGroups(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var groups []models.Group
	storage.DB.
		Joins("JOIN group_members m ON m.group_id = groups.id").
		Where("m.user_id = ?", claims.ID).
		Preload("Trip").
		Find(&groups)

	ctx.JSON(iris.Map{"groups": groups})
}

func GetGroupMembers(ctx iris.Context) {
	id, ok := groupIDParam(ctx)
	if !ok {
		return
	}
	var members []models.GroupMember
	storage.DB.Where("group_id = ?", id).Preload("User").Find(&members)
	ctx.JSON(iris.Map{"members": members})
}

// GetGroupPending lists proposals; admins only.
func GetGroupPending(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, ok := groupIDParam(ctx)
	if !ok {
		return
	}
	if !isGroupAdmin(id, claims.ID) {
		utils.CreateForbidden(ctx)
		return
	}
	var pending []models.GroupPending
	storage.DB.Where("group_id = ?", id).Preload("User").Find(&pending)
	ctx.JSON(iris.Map{"pending": pending})
}

type UpdateGroupInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Capacity    *int    `json:"capacity"`
	Privacy     *string `json:"privacy"`
	PhotoURL    *string `json:"photoURL"`
}

func UpdateGroup(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
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
	if !isGroupAdmin(id, claims.ID) {
		utils.CreateForbidden(ctx)
		return
	}

	var input UpdateGroupInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Capacity != nil {
		updates["capacity"] = *input.Capacity
	}
	if input.Privacy != nil && (*input.Privacy == "public" || *input.Privacy == "private") {
		updates["privacy"] = *input.Privacy
	}
	if input.PhotoURL != nil {
		updates["photo_url"] = *input.PhotoURL
	}
	if len(updates) == 0 {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Nothing to update.", ctx)
		return
	}

	if err := storage.DB.Model(&group).Updates(updates).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ns := services.NewNotificationService()
	var members []models.GroupMember
	storage.DB.Where("group_id = ?", id).Find(&members)
	for _, member := range members {
		if member.UserID == claims.ID {
			continue
		}
		ns.Notify(member.UserID, &claims.ID, models.NotifGroupUpdated,
			"Group Updated", "\""+group.Name+"\" has been updated",
			models.RefGroup, group.ID, map[string]string{"groupID": uintStr(group.ID)})
	}

	ctx.JSON(iris.Map{"updated": true})
}

// DeleteGroup removes the group and everything hanging off it: member and
// pending rows, group posts (with their own cascades), and every
// notification referencing the group, unread counters corrected.
func DeleteGroup(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
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
	if group.CreatorID != claims.ID {
		utils.CreateForbidden(ctx)
		return
	}

	deleteGroupCascade(&group)

	ctx.JSON(iris.Map{"deleted": true})
}

func deleteGroupCascade(group *models.Group) {
	ns := services.NewNotificationService()

	var posts []models.Post
	storage.DB.Where("group_id = ?", group.ID).Find(&posts)
	for i := range posts {
		deletePostCascade(&posts[i])
	}

	storage.DB.Where("group_id = ?", group.ID).Delete(&models.GroupMember{})
	storage.DB.Where("group_id = ?", group.ID).Delete(&models.GroupPending{})
	ns.DeleteForRef(models.RefGroup, group.ID)
	storage.DB.Delete(group)
}

// InviteToGroup appends an invite proposal. Rejected when the user is
// already a member or already pending via either origin.
func InviteToGroup(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, ok := groupIDParam(ctx)
	if !ok {
		return
	}

	var input FriendActionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	unlock := utils.Locks.Lock(utils.GroupKey(id))
	defer unlock()

	group, found := findGroup(ctx, id)
	if !found {
		return
	}
	if !isGroupAdmin(id, claims.ID) {
		utils.CreateForbidden(ctx)
		return
	}

	var invitee models.User
	if err := storage.DB.First(&invitee, input.UserID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if _, isMember := memberRow(id, invitee.ID); isMember {
		utils.CreateConflict(ctx, "User is already a member.")
		return
	}
	if _, isPending := pendingRow(id, invitee.ID); isPending {
		utils.CreateConflict(ctx, "User already has a pending entry for this group.")
		return
	}

	inviterID := claims.ID
	storage.DB.Create(&models.GroupPending{
		GroupID:   id,
		UserID:    invitee.ID,
		Origin:    models.PendingOriginInvite,
		Status:    "pending",
		InviterID: &inviterID,
	})

	ns := services.NewNotificationService()
	ns.NotifyOrBump(invitee.ID, &claims.ID, models.NotifGroupInvite,
		"Group Invite", "You have been invited to join \""+group.Name+"\"",
		models.RefGroup, group.ID, map[string]string{"groupID": uintStr(group.ID)})

	ctx.JSON(iris.Map{"invited": true})
}

// CancelInvite removes a pending invite. When the invitee cancels their own
// invite the notification is marked read to keep their history; when an
// admin cancels, it is deleted outright.
func CancelInvite(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, ok := groupIDParam(ctx)
	if !ok {
		return
	}

	var input FriendActionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	unlock := utils.Locks.Lock(utils.GroupKey(id))
	defer unlock()

	if _, found := findGroup(ctx, id); !found {
		return
	}

	selfCancel := claims.ID == input.UserID
	if !selfCancel && !isGroupAdmin(id, claims.ID) {
		utils.CreateForbidden(ctx)
		return
	}

	pending, found := pendingRow(id, input.UserID)
	if !found || pending.Origin != models.PendingOriginInvite {
		utils.CreateNotFound(ctx)
		return
	}

	storage.DB.Delete(&pending)

	ns := services.NewNotificationService()
	if n, ok := ns.FindExisting(input.UserID, pending.InviterID, models.NotifGroupInvite, models.RefGroup, id); ok {
		if selfCancel {
			ns.MarkRead(n)
		} else {
			ns.Delete(n)
		}
	}

	ctx.JSON(iris.Map{"cancelled": true})
}

// AcceptInvite converts a pending invite into membership and notifies the
// admin who sent it.
func AcceptInvite(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
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

	pending, foundPending := pendingRow(id, claims.ID)
	if !foundPending || pending.Origin != models.PendingOriginInvite {
		utils.CreateNotFound(ctx)
		return
	}

	if groupFull(&group) {
		utils.CreateConflict(ctx, "Group is full.")
		return
	}

	storage.DB.Delete(&pending)

	if addMember(id, claims.ID, models.GroupRoleCompanion) {
		awardExp(claims.ID, expGroupJoin)
	}

	ns := services.NewNotificationService()
	if n, ok := ns.FindExisting(claims.ID, pending.InviterID, models.NotifGroupInvite, models.RefGroup, id); ok {
		ns.MarkRead(n)
	}
	if pending.InviterID != nil {
		var accepter models.User
		storage.DB.First(&accepter, claims.ID)
		ns.Notify(*pending.InviterID, &claims.ID, models.NotifGroupInviteAccepted,
			"Invite Accepted", accepter.FullName()+" accepted your invite to \""+group.Name+"\"",
			models.RefGroup, group.ID, map[string]string{"groupID": uintStr(group.ID)})
	}

	ctx.JSON(iris.Map{"joined": true})
}

// JoinGroup adds the caller directly on public groups; on private groups it
// files a join request and notifies every admin.
func JoinGroup(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
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

	if _, isMember := memberRow(id, claims.ID); isMember {
		utils.CreateConflict(ctx, "You are already a member.")
		return
	}
	if _, isPending := pendingRow(id, claims.ID); isPending {
		utils.CreateConflict(ctx, "You already have a pending entry for this group.")
		return
	}

	var joiner models.User
	if err := storage.DB.First(&joiner, claims.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if groupFull(&group) {
		utils.CreateConflict(ctx, "Group is full.")
		return
	}

	ns := services.NewNotificationService()

	if group.Privacy == "public" {
		addMember(id, claims.ID, models.GroupRoleCompanion)
		awardExp(claims.ID, expGroupJoin)

		for _, admin := range groupAdmins(id) {
			if admin.UserID == claims.ID {
				continue
			}
			ns.Notify(admin.UserID, &claims.ID, models.NotifGroupJoined,
				"New Companion", joiner.FullName()+" joined \""+group.Name+"\"",
				models.RefGroup, group.ID, map[string]string{"groupID": uintStr(group.ID)})
		}

		ctx.JSON(iris.Map{"joined": true})
		return
	}

	storage.DB.Create(&models.GroupPending{
		GroupID: id,
		UserID:  claims.ID,
		Origin:  models.PendingOriginRequest,
		Status:  "pending",
	})

	for _, admin := range groupAdmins(id) {
		ns.NotifyOrBump(admin.UserID, &claims.ID, models.NotifGroupJoinRequest,
			"Join Request", joiner.FullName()+" wants to join \""+group.Name+"\"",
			models.RefGroup, group.ID, map[string]string{"groupID": uintStr(group.ID)})
	}

	ctx.JSON(iris.Map{"requested": true})
}

// ApproveJoin pulls the pending request, adds the member, and cleans up
// every other admin's stale join-request notification. The approving
// admin's own notification survives for audit, marked read.
func ApproveJoin(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, ok := groupIDParam(ctx)
	if !ok {
		return
	}

	var input FriendActionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	unlock := utils.Locks.Lock(utils.GroupKey(id))
	defer unlock()

	group, found := findGroup(ctx, id)
	if !found {
		return
	}
	if !isGroupAdmin(id, claims.ID) {
		utils.CreateForbidden(ctx)
		return
	}

	pending, foundPending := pendingRow(id, input.UserID)
	if !foundPending || pending.Origin != models.PendingOriginRequest {
		utils.CreateNotFound(ctx)
		return
	}

	if groupFull(&group) {
		utils.CreateConflict(ctx, "Group is full.")
		return
	}

	storage.DB.Delete(&pending)

	if addMember(id, input.UserID, models.GroupRoleCompanion) {
		awardExp(input.UserID, expGroupJoin)
	}

	ns := services.NewNotificationService()
	ns.Notify(input.UserID, &claims.ID, models.NotifGroupJoinApproved,
		"Request Approved", "Your request to join \""+group.Name+"\" was approved",
		models.RefGroup, group.ID, map[string]string{"groupID": uintStr(group.ID)})

	for _, admin := range groupAdmins(id) {
		n, ok := ns.FindExisting(admin.UserID, &input.UserID, models.NotifGroupJoinRequest, models.RefGroup, id)
		if !ok {
			continue
		}
		if admin.UserID == claims.ID {
			ns.MarkRead(n)
			continue
		}
		ns.Delete(n)
	}

	ctx.JSON(iris.Map{"approved": true})
}

// CancelJoin withdraws a pending join request. Who cancels decides what
// happens to the admins' notifications: the requester cancelling deletes all
// of them; an admin cancelling marks their own read and deletes the other
// admins' stale ones.
func CancelJoin(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, ok := groupIDParam(ctx)
	if !ok {
		return
	}

	var input FriendActionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	unlock := utils.Locks.Lock(utils.GroupKey(id))
	defer unlock()

	if _, found := findGroup(ctx, id); !found {
		return
	}

	requesterID := input.UserID
	selfCancel := claims.ID == requesterID
	if !selfCancel && !isGroupAdmin(id, claims.ID) {
		utils.CreateForbidden(ctx)
		return
	}

	pending, foundPending := pendingRow(id, requesterID)
	if !foundPending || pending.Origin != models.PendingOriginRequest {
		utils.CreateNotFound(ctx)
		return
	}

	storage.DB.Delete(&pending)

	ns := services.NewNotificationService()
	for _, admin := range groupAdmins(id) {
		n, ok := ns.FindExisting(admin.UserID, &requesterID, models.NotifGroupJoinRequest, models.RefGroup, id)
		if !ok {
			continue
		}
		if !selfCancel && admin.UserID == claims.ID {
			ns.MarkRead(n)
			continue
		}
		ns.Delete(n)
	}

	ctx.JSON(iris.Map{"cancelled": true})
}

// RemoveMember handles self-removal and admin removal. No notification is
// sent on removal yet.
func RemoveMember(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, ok := groupIDParam(ctx)
	if !ok {
		return
	}

	var input FriendActionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	unlock := utils.Locks.Lock(utils.GroupKey(id))
	defer unlock()

	if _, found := findGroup(ctx, id); !found {
		return
	}

	selfRemoval := claims.ID == input.UserID
	if !selfRemoval && !isGroupAdmin(id, claims.ID) {
		utils.CreateForbidden(ctx)
		return
	}

	member, found := memberRow(id, input.UserID)
	if !found {
		utils.CreateNotFound(ctx)
		return
	}

	storage.DB.Delete(&member)
	ctx.JSON(iris.Map{"removed": true})
}
