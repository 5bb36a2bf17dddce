package routes

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/HikeMeet/HikeMeet-Backend-sub000/models"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"
)

func createTestPost(t *testing.T, author models.User, content string) models.Post {
	t.Helper()
	post := models.Post{AuthorID: author.ID, Content: content}
	if err := storage.DB.Create(&post).Error; err != nil {
		t.Fatalf("creating test post: %v", err)
	}
	return post
}

func postPath(post models.Post, suffix string) string {
	return "/api/post/" + uintStr(post.ID) + suffix
}

func TestCreatePostAwardsExp(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	alice := createTestUser(t, "alice")
	token := signTestToken(t, alice.ID, "user")

	resp := doJSON(t, app, http.MethodPost, "/api/post", token,
		CreatePostInput{Content: "first summit of the season"})
	mustStatus(t, resp, http.StatusCreated)

	if got := reloadUser(t, alice.ID).Exp; got != expPostCreate {
		t.Fatalf("author exp = %d, want %d", got, expPostCreate)
	}
}

func TestLikeUnlikePost(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	post := createTestPost(t, alice, "view from the top")
	bobToken := signTestToken(t, bob.ID, "user")

	resp := doJSON(t, app, http.MethodPost, postPath(post, "/like"), bobToken, nil)
	mustStatus(t, resp, http.StatusOK)

	var reloaded models.Post
	storage.DB.First(&reloaded, post.ID)
	if !models.IDSetContains(reloaded.Likes, bob.ID) {
		t.Fatal("liker missing from likes set")
	}
	aliceNotifs := notificationsFor(t, alice.ID)
	if len(aliceNotifs) != 1 || aliceNotifs[0].Type != models.NotifPostLike {
		t.Fatalf("author notifications: %+v", aliceNotifs)
	}
	if got := unreadCount(t, alice.ID); got != 1 {
		t.Fatalf("author unread = %d, want 1", got)
	}

	// Liking twice is a no-op
	doJSON(t, app, http.MethodPost, postPath(post, "/like"), bobToken, nil)
	if got := len(notificationsFor(t, alice.ID)); got != 1 {
		t.Fatalf("author notifications after double like = %d, want 1", got)
	}

	// Unlike removes the set entry and the notification
	resp = doJSON(t, app, http.MethodPost, postPath(post, "/unlike"), bobToken, nil)
	mustStatus(t, resp, http.StatusOK)

	storage.DB.First(&reloaded, post.ID)
	if models.IDSetContains(reloaded.Likes, bob.ID) {
		t.Fatal("liker still in likes set after unlike")
	}
	if got := len(notificationsFor(t, alice.ID)); got != 0 {
		t.Fatalf("author notifications after unlike = %d, want 0", got)
	}
	if got := unreadCount(t, alice.ID); got != 0 {
		t.Fatalf("author unread after unlike = %d, want 0", got)
	}
}

func TestCommentAndDelete(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	post := createTestPost(t, alice, "anyone up for round two?")
	bobToken := signTestToken(t, bob.ID, "user")

	resp := doJSON(t, app, http.MethodPost, postPath(post, "/comment"), bobToken,
		CreateCommentInput{Content: "count me in"})
	mustStatus(t, resp, http.StatusCreated)

	var out struct {
		Comment models.Comment `json:"comment"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding comment response: %v", err)
	}
	if got := reloadUser(t, bob.ID).Exp; got != expCommentCreate {
		t.Fatalf("commenter exp = %d, want %d", got, expCommentCreate)
	}
	aliceNotifs := notificationsFor(t, alice.ID)
	if len(aliceNotifs) != 1 || aliceNotifs[0].Type != models.NotifPostComment {
		t.Fatalf("author notifications: %+v", aliceNotifs)
	}

	// Author deleting their own comment forfeits the reward
	resp = doJSON(t, app, http.MethodDelete,
		"/api/post/comment/"+uintStr(out.Comment.ID), bobToken, nil)
	mustStatus(t, resp, http.StatusOK)

	if got := reloadUser(t, bob.ID).Exp; got != 0 {
		t.Fatalf("commenter exp after delete = %d, want 0", got)
	}
}

func TestModeratorDeleteDoesNotPenalize(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	alice := createTestUser(t, "alice")
	mod := createTestUser(t, "mod")
	storage.DB.Model(&models.User{}).Where("id = ?", mod.ID).Update("role", "admin")

	aliceToken := signTestToken(t, alice.ID, "user")
	modToken := signTestToken(t, mod.ID, "admin")

	resp := doJSON(t, app, http.MethodPost, "/api/post", aliceToken,
		CreatePostInput{Content: "off-trail shortcuts are fine"})
	mustStatus(t, resp, http.StatusCreated)

	var out struct {
		Post models.Post `json:"post"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding post response: %v", err)
	}

	resp = doJSON(t, app, http.MethodDelete, "/api/post/"+uintStr(out.Post.ID), modToken, nil)
	mustStatus(t, resp, http.StatusOK)

	// Creation reward stays; only self-deletes claw it back
	if got := reloadUser(t, alice.ID).Exp; got != expPostCreate {
		t.Fatalf("author exp after moderator delete = %d, want %d", got, expPostCreate)
	}
}

func TestSharePostLineage(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	carol := createTestUser(t, "carol")
	original := createTestPost(t, alice, "trail conditions report")
	bobToken := signTestToken(t, bob.ID, "user")
	carolToken := signTestToken(t, carol.ID, "user")

	resp := doJSON(t, app, http.MethodPost, postPath(original, "/share"), bobToken,
		SharePostInput{Content: "worth a read"})
	mustStatus(t, resp, http.StatusCreated)

	var out struct {
		Post models.Post `json:"post"`
	}
	json.Unmarshal(resp.Body.Bytes(), &out)
	if out.Post.OriginalPostID == nil || *out.Post.OriginalPostID != original.ID {
		t.Fatalf("share lineage = %+v", out.Post.OriginalPostID)
	}

	aliceNotifs := notificationsFor(t, alice.ID)
	if len(aliceNotifs) != 1 || aliceNotifs[0].Type != models.NotifPostShared {
		t.Fatalf("original author notifications: %+v", aliceNotifs)
	}

	// Sharing the share points back at the root post
	resp = doJSON(t, app, http.MethodPost, postPath(out.Post, "/share"), carolToken,
		SharePostInput{})
	mustStatus(t, resp, http.StatusCreated)

	var second struct {
		Post models.Post `json:"post"`
	}
	json.Unmarshal(resp.Body.Bytes(), &second)
	if second.Post.OriginalPostID == nil || *second.Post.OriginalPostID != original.ID {
		t.Fatalf("second-hop lineage = %+v", second.Post.OriginalPostID)
	}
}

func TestGroupFeedRequiresMembership(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	admin := createTestUser(t, "admin")
	outsider := createTestUser(t, "outsider")
	group := createTestGroup(t, admin, "private", 0)

	adminToken := signTestToken(t, admin.ID, "user")
	outsiderToken := signTestToken(t, outsider.ID, "user")

	resp := doJSON(t, app, http.MethodGet, groupPath(group, "/feed"), adminToken, nil)
	mustStatus(t, resp, http.StatusOK)

	resp = doJSON(t, app, http.MethodGet, groupPath(group, "/feed"), outsiderToken, nil)
	mustStatus(t, resp, http.StatusForbidden)
}
