package routes

import (
	"log"

	"github.com/HikeMeet/HikeMeet-Backend-sub000/models"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/services"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/utils"

	"github.com/kataras/iris/v12"
)

type CreatePostInput struct {
	Content   string   `json:"content" validate:"required_without=Images,max=5000"`
	Images    []string `json:"images"`
	GroupID   *uint    `json:"groupID"`
	IsPrivate bool     `json:"isPrivate"`
}

func postIDParam(ctx iris.Context) (uint, bool) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid post id.", ctx)
		return 0, false
	}
	return id, true
}

func findPost(ctx iris.Context, id uint) (models.Post, bool) {
	var post models.Post
	if err := storage.DB.Preload("Author").First(&post, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return post, false
	}
	return post, true
}

func isModerator(claims *utils.AccessToken) bool {
	return claims.Role == "admin"
}

func CreatePost(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input CreatePostInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.GroupID != nil {
		if _, found := memberRow(*input.GroupID, claims.ID); !found {
			utils.CreateForbidden(ctx)
			return
		}
	}

	post := models.Post{
		AuthorID:  claims.ID,
		GroupID:   input.GroupID,
		Content:   input.Content,
		Images:    models.EncodeStringList(input.Images),
		IsPrivate: input.IsPrivate,
	}
	if err := storage.DB.Create(&post).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	awardExp(claims.ID, expPostCreate)

	if input.GroupID != nil {
		notifyGroupPost(&post, claims.ID, models.NotifPostCreateInGroup, "posted in")
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"post": post})
}

// notifyGroupPost fans a post event out to the group's members, skipping the
// actor.
func notifyGroupPost(post *models.Post, actorID uint, ntype, verb string) {
	if post.GroupID == nil {
		return
	}
	var group models.Group
	if err := storage.DB.First(&group, *post.GroupID).Error; err != nil {
		return
	}
	var actor models.User
	storage.DB.First(&actor, actorID)

	ns := services.NewNotificationService()
	var members []models.GroupMember
	storage.DB.Where("group_id = ?", group.ID).Find(&members)
	for _, member := range members {
		if member.UserID == actorID {
			continue
		}
		ns.Notify(member.UserID, &actorID, ntype,
			"New Post", actor.FullName()+" "+verb+" \""+group.Name+"\"",
			models.RefPost, post.ID,
			map[string]string{"postID": uintStr(post.ID), "groupID": uintStr(group.ID)})
	}
}

func GetPost(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, ok := postIDParam(ctx)
	if !ok {
		return
	}

	var post models.Post
	if err := storage.DB.Preload("Author").Preload("Comments").Preload("Comments.Author").
		Preload("OriginalPost").Preload("OriginalPost.Author").
		First(&post, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if post.IsPrivate && post.AuthorID != claims.ID && !isModerator(claims) {
		utils.CreateForbidden(ctx)
		return
	}
	if post.GroupID != nil {
		if _, found := memberRow(*post.GroupID, claims.ID); !found && !isModerator(claims) {
			utils.CreateForbidden(ctx)
			return
		}
	}

	ctx.JSON(iris.Map{"post": post})
}

// GetFeed pages the caller's feed: their own posts plus public posts from
// accepted friends, newest first. Group posts stay in their group feeds.
func GetFeed(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	page := ctx.URLParamIntDefault("page", 1)
	size := ctx.URLParamIntDefault("size", 20)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	var me models.User
	if err := storage.DB.First(&me, claims.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	authorIDs := []uint{claims.ID}
	for _, entry := range me.FriendList() {
		if entry.Status == models.FriendStatusAccepted {
			authorIDs = append(authorIDs, entry.UserID)
		}
	}

	var posts []models.Post
	storage.DB.Preload("Author").
		Where("group_id IS NULL AND author_id IN ?", authorIDs).
		Where("is_private = ? OR author_id = ?", false, claims.ID).
		Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&posts)

	ctx.JSON(iris.Map{"posts": posts, "page": page})
}

// GetGroupFeed pages a group's posts; members only.
func GetGroupFeed(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, ok := groupIDParam(ctx)
	if !ok {
		return
	}
	if _, found := memberRow(id, claims.ID); !found && !isModerator(claims) {
		utils.CreateForbidden(ctx)
		return
	}

	page := ctx.URLParamIntDefault("page", 1)
	size := ctx.URLParamIntDefault("size", 20)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	var posts []models.Post
	storage.DB.Preload("Author").
		Where("group_id = ?", id).
		Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&posts)

	ctx.JSON(iris.Map{"posts": posts, "page": page})
}

type UpdatePostInput struct {
	Content   *string `json:"content"`
	IsPrivate *bool   `json:"isPrivate"`
}

func UpdatePost(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, ok := postIDParam(ctx)
	if !ok {
		return
	}

	unlock := utils.Locks.Lock(utils.PostKey(id))
	defer unlock()

	post, found := findPost(ctx, id)
	if !found {
		return
	}
	if post.AuthorID != claims.ID {
		utils.CreateForbidden(ctx)
		return
	}

	var input UpdatePostInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updates := map[string]interface{}{}
	if input.Content != nil {
		updates["content"] = *input.Content
	}
	if input.IsPrivate != nil {
		updates["is_private"] = *input.IsPrivate
	}
	if len(updates) == 0 {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Nothing to update.", ctx)
		return
	}

	if err := storage.DB.Model(&post).Updates(updates).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"updated": true})
}

// DeletePost removes a post. The author deleting loses the creation reward;
// a moderator cleaning up content does not touch the author's balance.
func DeletePost(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, ok := postIDParam(ctx)
	if !ok {
		return
	}

	unlock := utils.Locks.Lock(utils.PostKey(id))
	defer unlock()

	post, found := findPost(ctx, id)
	if !found {
		return
	}

	authorDelete := post.AuthorID == claims.ID
	if !authorDelete && !isModerator(claims) {
		utils.CreateForbidden(ctx)
		return
	}

	deletePostCascade(&post)
	if authorDelete {
		awardExp(post.AuthorID, -expPostCreate)
	}

	ctx.JSON(iris.Map{"deleted": true})
}

// deletePostCascade tears down a post: hosted images, comments, and every
// notification pointing at it.
func deletePostCascade(post *models.Post) {
	for _, url := range models.DecodeStringList(post.Images) {
		if !storage.DeleteImage(url) {
			log.Printf("posts: could not delete image %q", url)
		}
	}

	storage.DB.Where("post_id = ?", post.ID).Delete(&models.Comment{})
	services.NewNotificationService().DeleteForRef(models.RefPost, post.ID)
	storage.DB.Unscoped().Delete(post)
}

func LikePost(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, ok := postIDParam(ctx)
	if !ok {
		return
	}

	unlock := utils.Locks.Lock(utils.PostKey(id))
	defer unlock()

	post, found := findPost(ctx, id)
	if !found {
		return
	}
	if models.IDSetContains(post.Likes, claims.ID) {
		ctx.JSON(iris.Map{"liked": true})
		return
	}

	post.Likes = models.IDSetAdd(post.Likes, claims.ID)
	if err := storage.DB.Model(&post).Update("likes", post.Likes).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if post.AuthorID != claims.ID {
		var liker models.User
		storage.DB.First(&liker, claims.ID)
		services.NewNotificationService().NotifyOrBump(post.AuthorID, &claims.ID,
			models.NotifPostLike, "New Like", liker.FullName()+" liked your post",
			models.RefPost, post.ID, map[string]string{"postID": uintStr(post.ID)})
	}

	ctx.JSON(iris.Map{"liked": true})
}

func UnlikePost(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, ok := postIDParam(ctx)
	if !ok {
		return
	}

	unlock := utils.Locks.Lock(utils.PostKey(id))
	defer unlock()

	post, found := findPost(ctx, id)
	if !found {
		return
	}
	if !models.IDSetContains(post.Likes, claims.ID) {
		ctx.JSON(iris.Map{"liked": false})
		return
	}

	post.Likes = models.IDSetRemove(post.Likes, claims.ID)
	if err := storage.DB.Model(&post).Update("likes", post.Likes).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ns := services.NewNotificationService()
	if n, okN := ns.FindExisting(post.AuthorID, &claims.ID, models.NotifPostLike, models.RefPost, post.ID); okN {
		ns.Delete(n)
	}

	ctx.JSON(iris.Map{"liked": false})
}

func SavePost(ctx iris.Context) {
	togglePostSet(ctx, "saves", true)
}

func UnsavePost(ctx iris.Context) {
	togglePostSet(ctx, "saves", false)
}

// togglePostSet adds/removes the caller in a post's id-set column. Saves are
// private bookkeeping, so no notification goes out.
func togglePostSet(ctx iris.Context, column string, add bool) {
	claims := utils.GetClaims(ctx)
	id, ok := postIDParam(ctx)
	if !ok {
		return
	}

	unlock := utils.Locks.Lock(utils.PostKey(id))
	defer unlock()

	post, found := findPost(ctx, id)
	if !found {
		return
	}

	var set = post.Saves
	if add {
		set = models.IDSetAdd(set, claims.ID)
	} else {
		set = models.IDSetRemove(set, claims.ID)
	}
	if err := storage.DB.Model(&post).Update(column, set).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"saved": add})
}

func GetSavedPosts(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var posts []models.Post
	storage.DB.Preload("Author").
		Where("saves LIKE ?", "%"+uintStr(claims.ID)+"%").
		Order("created_at DESC").
		Find(&posts)

	// LIKE over the JSON column is a coarse filter; confirm membership.
	out := posts[:0]
	for _, post := range posts {
		if models.IDSetContains(post.Saves, claims.ID) {
			out = append(out, post)
		}
	}
	ctx.JSON(iris.Map{"posts": out})
}

type SharePostInput struct {
	Content string `json:"content" validate:"max=5000"`
	GroupID *uint  `json:"groupID"`
}

// SharePost creates a new post that points back at the original. Sharing
// into a group requires membership there and notifies the group; otherwise
// the original author is told their post travelled.
func SharePost(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, ok := postIDParam(ctx)
	if !ok {
		return
	}

	var input SharePostInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	unlock := utils.Locks.Lock(utils.PostKey(id))
	defer unlock()

	original, found := findPost(ctx, id)
	if !found {
		return
	}
	if original.IsPrivate {
		utils.CreateForbidden(ctx)
		return
	}
	if input.GroupID != nil {
		if _, member := memberRow(*input.GroupID, claims.ID); !member {
			utils.CreateForbidden(ctx)
			return
		}
	}

	// Shares of shares point at the root post so lineage stays one hop deep.
	rootID := original.ID
	if original.OriginalPostID != nil {
		rootID = *original.OriginalPostID
	}

	share := models.Post{
		AuthorID:       claims.ID,
		GroupID:        input.GroupID,
		Content:        input.Content,
		OriginalPostID: &rootID,
	}
	if err := storage.DB.Create(&share).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	original.Shares = models.IDSetAdd(original.Shares, claims.ID)
	storage.DB.Model(&original).Update("shares", original.Shares)

	var sharer models.User
	storage.DB.First(&sharer, claims.ID)
	ns := services.NewNotificationService()

	if input.GroupID != nil {
		notifyGroupPost(&share, claims.ID, models.NotifPostSharedInGroup, "shared a post in")
	}
	if original.AuthorID != claims.ID {
		ns.Notify(original.AuthorID, &claims.ID, models.NotifPostShared,
			"Post Shared", sharer.FullName()+" shared your post",
			models.RefPost, original.ID, map[string]string{"postID": uintStr(original.ID)})
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"post": share})
}

type CreateCommentInput struct {
	Content string `json:"content" validate:"required,max=1000"`
}

func CreateComment(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, ok := postIDParam(ctx)
	if !ok {
		return
	}

	var input CreateCommentInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	unlock := utils.Locks.Lock(utils.PostKey(id))
	defer unlock()

	post, found := findPost(ctx, id)
	if !found {
		return
	}

	comment := models.Comment{
		PostID:   post.ID,
		AuthorID: claims.ID,
		Content:  input.Content,
	}
	if err := storage.DB.Create(&comment).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	awardExp(claims.ID, expCommentCreate)

	if post.AuthorID != claims.ID {
		var commenter models.User
		storage.DB.First(&commenter, claims.ID)
		services.NewNotificationService().Notify(post.AuthorID, &claims.ID,
			models.NotifPostComment, "New Comment",
			commenter.FullName()+" commented on your post",
			models.RefPost, post.ID,
			map[string]string{"postID": uintStr(post.ID), "commentID": uintStr(comment.ID)})
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"comment": comment})
}

// DeleteComment allows the comment author, the post author, or a moderator.
// Only the comment author deleting their own words forfeits the reward.
func DeleteComment(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	commentID, err := ctx.Params().GetUint("commentID")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid comment id.", ctx)
		return
	}

	var comment models.Comment
	if err := storage.DB.First(&comment, commentID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	unlock := utils.Locks.Lock(utils.PostKey(comment.PostID))
	defer unlock()

	var post models.Post
	if err := storage.DB.First(&post, comment.PostID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	authorDelete := comment.AuthorID == claims.ID
	if !authorDelete && post.AuthorID != claims.ID && !isModerator(claims) {
		utils.CreateForbidden(ctx)
		return
	}

	storage.DB.Delete(&comment)
	if authorDelete {
		awardExp(comment.AuthorID, -expCommentCreate)
	}

	ctx.JSON(iris.Map{"deleted": true})
}

func LikeComment(ctx iris.Context) {
	toggleCommentLike(ctx, true)
}

func UnlikeComment(ctx iris.Context) {
	toggleCommentLike(ctx, false)
}

func toggleCommentLike(ctx iris.Context, add bool) {
	claims := utils.GetClaims(ctx)
	commentID, err := ctx.Params().GetUint("commentID")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid comment id.", ctx)
		return
	}

	var comment models.Comment
	if err := storage.DB.First(&comment, commentID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	unlock := utils.Locks.Lock(utils.PostKey(comment.PostID))
	defer unlock()

	if err := storage.DB.First(&comment, commentID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	already := models.IDSetContains(comment.Likes, claims.ID)
	if add == already {
		ctx.JSON(iris.Map{"liked": add})
		return
	}

	if add {
		comment.Likes = models.IDSetAdd(comment.Likes, claims.ID)
	} else {
		comment.Likes = models.IDSetRemove(comment.Likes, claims.ID)
	}
	if err := storage.DB.Model(&comment).Update("likes", comment.Likes).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ns := services.NewNotificationService()
	if add && comment.AuthorID != claims.ID {
		var liker models.User
		storage.DB.First(&liker, claims.ID)
		ns.NotifyOrBump(comment.AuthorID, &claims.ID, models.NotifCommentLike,
			"New Like", liker.FullName()+" liked your comment",
			models.RefPost, comment.PostID,
			map[string]string{"postID": uintStr(comment.PostID), "commentID": uintStr(comment.ID)})
	}
	if !add {
		if n, okN := ns.FindExisting(comment.AuthorID, &claims.ID, models.NotifCommentLike, models.RefPost, comment.PostID); okN {
			ns.Delete(n)
		}
	}

	ctx.JSON(iris.Map{"liked": add})
}
