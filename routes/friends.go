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

type FriendActionInput struct {
	UserID uint `json:"userID" validate:"required"`
}

// loadUserPair fetches actor and peer. Callers must already hold the pair
// lock so the read-check-write below cannot interleave with another request.
func loadUserPair(ctx iris.Context, actorID, peerID uint) (actor, peer models.User, ok bool) {
	if err := storage.DB.First(&actor, actorID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return actor, peer, false
	}
	if err := storage.DB.First(&peer, peerID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return actor, peer, false
	}
	return actor, peer, true
}

func saveFriendList(user *models.User, entries []models.FriendEntry) error {
	user.SetFriendList(entries)
	return storage.DB.Model(user).Update("friends", user.Friends).Error
}

func removeEntryFor(entries []models.FriendEntry, peerID uint) []models.FriendEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.UserID != peerID {
			out = append(out, e)
		}
	}
	return out
}

// SendFriendRequest appends symmetric request_sent/request_received entries
// and notifies the receiver, bumping an existing notification instead of
// duplicating it.
func SendFriendRequest(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input FriendActionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.UserID == claims.ID {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "You cannot friend yourself.", ctx)
		return
	}

	unlock := utils.Locks.LockPair(utils.UserKey(claims.ID), utils.UserKey(input.UserID))
	defer unlock()

	sender, receiver, ok := loadUserPair(ctx, claims.ID, input.UserID)
	if !ok {
		return
	}

	if entry, found := receiver.FriendEntryFor(sender.ID); found && entry.Status == models.FriendStatusBlocked {
		utils.CreateForbidden(ctx)
		return
	}
	if _, found := sender.FriendEntryFor(receiver.ID); found {
		utils.CreateConflict(ctx, "A relationship with this user already exists.")
		return
	}
	if _, found := receiver.FriendEntryFor(sender.ID); found {
		utils.CreateConflict(ctx, "A relationship with this user already exists.")
		return
	}

	now := time.Now()
	if err := saveFriendList(&sender, append(sender.FriendList(),
		models.FriendEntry{UserID: receiver.ID, Status: models.FriendStatusRequestSent, CreatedAt: now})); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if err := saveFriendList(&receiver, append(receiver.FriendList(),
		models.FriendEntry{UserID: sender.ID, Status: models.FriendStatusRequestReceived, CreatedAt: now})); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ns := services.NewNotificationService()
	ns.NotifyOrBump(receiver.ID, &sender.ID, models.NotifFriendRequest,
		"New Friend Request", sender.FullName()+" wants to be your hiking buddy",
		models.RefUser, sender.ID,
		map[string]string{"userID": strconv.FormatUint(uint64(sender.ID), 10)})

	ctx.JSON(iris.Map{"sent": true})
}

// CancelFriendRequest is the sender withdrawing their own request. Both
// sides' entries are trimmed and the receiver's notification is deleted.
func CancelFriendRequest(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input FriendActionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	unlock := utils.Locks.LockPair(utils.UserKey(claims.ID), utils.UserKey(input.UserID))
	defer unlock()

	sender, receiver, ok := loadUserPair(ctx, claims.ID, input.UserID)
	if !ok {
		return
	}

	senderEntry, senderFound := sender.FriendEntryFor(receiver.ID)
	receiverEntry, receiverFound := receiver.FriendEntryFor(sender.ID)
	if !senderFound || !receiverFound ||
		senderEntry.Status != models.FriendStatusRequestSent ||
		receiverEntry.Status != models.FriendStatusRequestReceived {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "No pending request to cancel.", ctx)
		return
	}

	saveFriendList(&sender, removeEntryFor(sender.FriendList(), receiver.ID))
	saveFriendList(&receiver, removeEntryFor(receiver.FriendList(), sender.ID))

	ns := services.NewNotificationService()
	if n, found := ns.FindExisting(receiver.ID, &sender.ID, models.NotifFriendRequest, models.RefUser, sender.ID); found {
		ns.Delete(n)
	}

	ctx.JSON(iris.Map{"cancelled": true})
}

// DeclineFriendRequest is the receiver turning a request down. Their own
// notification is kept but marked read, preserving the history.
func DeclineFriendRequest(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input FriendActionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	unlock := utils.Locks.LockPair(utils.UserKey(claims.ID), utils.UserKey(input.UserID))
	defer unlock()

	receiver, sender, ok := loadUserPair(ctx, claims.ID, input.UserID)
	if !ok {
		return
	}

	receiverEntry, receiverFound := receiver.FriendEntryFor(sender.ID)
	senderEntry, senderFound := sender.FriendEntryFor(receiver.ID)
	if !receiverFound || !senderFound ||
		receiverEntry.Status != models.FriendStatusRequestReceived ||
		senderEntry.Status != models.FriendStatusRequestSent {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "No pending request to decline.", ctx)
		return
	}

	saveFriendList(&receiver, removeEntryFor(receiver.FriendList(), sender.ID))
	saveFriendList(&sender, removeEntryFor(sender.FriendList(), receiver.ID))

	ns := services.NewNotificationService()
	if n, found := ns.FindExisting(receiver.ID, &sender.ID, models.NotifFriendRequest, models.RefUser, sender.ID); found {
		ns.MarkRead(n)
	}

	ctx.JSON(iris.Map{"declined": true})
}

// AcceptFriendRequest flips the matching pair to accepted, resolves the
// request notification, and tells the sender.
func AcceptFriendRequest(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input FriendActionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	unlock := utils.Locks.LockPair(utils.UserKey(claims.ID), utils.UserKey(input.UserID))
	defer unlock()

	receiver, sender, ok := loadUserPair(ctx, claims.ID, input.UserID)
	if !ok {
		return
	}

	receiverEntry, receiverFound := receiver.FriendEntryFor(sender.ID)
	senderEntry, senderFound := sender.FriendEntryFor(receiver.ID)
	if !receiverFound || !senderFound ||
		receiverEntry.Status != models.FriendStatusRequestReceived ||
		senderEntry.Status != models.FriendStatusRequestSent {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "No pending request to accept.", ctx)
		return
	}

	receiverList := receiver.FriendList()
	for i := range receiverList {
		if receiverList[i].UserID == sender.ID {
			receiverList[i].Status = models.FriendStatusAccepted
		}
	}
	saveFriendList(&receiver, receiverList)

	senderList := sender.FriendList()
	for i := range senderList {
		if senderList[i].UserID == receiver.ID {
			senderList[i].Status = models.FriendStatusAccepted
		}
	}
	saveFriendList(&sender, senderList)

	ns := services.NewNotificationService()
	if n, found := ns.FindExisting(receiver.ID, &sender.ID, models.NotifFriendRequest, models.RefUser, sender.ID); found {
		ns.MarkRead(n)
	}
	ns.Notify(sender.ID, &receiver.ID, models.NotifFriendAccept,
		"Friend Request Accepted", receiver.FullName()+" accepted your friend request",
		models.RefUser, receiver.ID,
		map[string]string{"userID": strconv.FormatUint(uint64(receiver.ID), 10)})

	ctx.JSON(iris.Map{"accepted": true})
}

// RemoveFriend removes an accepted relationship from both sides.
func RemoveFriend(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input FriendActionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	unlock := utils.Locks.LockPair(utils.UserKey(claims.ID), utils.UserKey(input.UserID))
	defer unlock()

	actor, peer, ok := loadUserPair(ctx, claims.ID, input.UserID)
	if !ok {
		return
	}

	actorEntry, actorFound := actor.FriendEntryFor(peer.ID)
	peerEntry, peerFound := peer.FriendEntryFor(actor.ID)
	if !actorFound || !peerFound ||
		actorEntry.Status != models.FriendStatusAccepted ||
		peerEntry.Status != models.FriendStatusAccepted {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "You are not friends with this user.", ctx)
		return
	}

	saveFriendList(&actor, removeEntryFor(actor.FriendList(), peer.ID))
	saveFriendList(&peer, removeEntryFor(peer.FriendList(), actor.ID))

	ctx.JSON(iris.Map{"removed": true})
}

// BlockUser replaces any relationship on the blocker's side with blocked and
// purges the blocker from the target's side. The target is not notified.
func BlockUser(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input FriendActionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.UserID == claims.ID {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "You cannot block yourself.", ctx)
		return
	}

	unlock := utils.Locks.LockPair(utils.UserKey(claims.ID), utils.UserKey(input.UserID))
	defer unlock()

	blocker, target, ok := loadUserPair(ctx, claims.ID, input.UserID)
	if !ok {
		return
	}

	entries := removeEntryFor(blocker.FriendList(), target.ID)
	entries = append(entries, models.FriendEntry{
		UserID:    target.ID,
		Status:    models.FriendStatusBlocked,
		CreatedAt: time.Now(),
	})
	saveFriendList(&blocker, entries)

	saveFriendList(&target, removeEntryFor(target.FriendList(), blocker.ID))

	ctx.JSON(iris.Map{"blocked": true})
}

// UnblockUser lifts a block; the relationship returns to none.
func UnblockUser(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input FriendActionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	unlock := utils.Locks.Lock(utils.UserKey(claims.ID))
	defer unlock()

	var blocker models.User
	if err := storage.DB.First(&blocker, claims.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	entry, found := blocker.FriendEntryFor(input.UserID)
	if !found || entry.Status != models.FriendStatusBlocked {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "This user is not blocked.", ctx)
		return
	}

	saveFriendList(&blocker, removeEntryFor(blocker.FriendList(), input.UserID))
	ctx.JSON(iris.Map{"unblocked": true})
}

// ListFriends returns the caller's relationship entries with user summaries.
func ListFriends(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var user models.User
	if err := storage.DB.First(&user, claims.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	entries := user.FriendList()
	ids := make([]uint, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}

	users := map[uint]models.User{}
	if len(ids) > 0 {
		var rows []models.User
		storage.DB.Where("id IN ?", ids).Find(&rows)
		for _, row := range rows {
			users[row.ID] = row
		}
	}

	type friendOut struct {
		UserID    uint   `json:"userID"`
		Status    string `json:"status"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		AvatarURL string `json:"avatarURL"`
	}
	out := make([]friendOut, 0, len(entries))
	for _, e := range entries {
		u := users[e.UserID]
		out = append(out, friendOut{
			UserID:    e.UserID,
			Status:    e.Status,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			AvatarURL: u.AvatarURL,
		})
	}

	ctx.JSON(iris.Map{"friends": out})
}
