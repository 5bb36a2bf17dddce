package routes

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/HikeMeet/HikeMeet-Backend-sub000/models"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/utils"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB points the global DB at a throwaway sqlite file.
func setupTestDB(t *testing.T) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Trip{},
		&models.Group{},
		&models.GroupMember{},
		&models.GroupPending{},
		&models.Notification{},
		&models.Post{},
		&models.Comment{},
		&models.Report{},
		&models.AuditLog{},
	); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}

	storage.DB = db
}

// buildTestApp wires the real route tree with the real JWT verifier.
func buildTestApp(t *testing.T) *iris.Application {
	t.Helper()
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")
	os.Setenv("REFRESH_TOKEN_SECRET", "testrefreshsecret")

	app := iris.New()
	app.Validator = validator.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", Register)
		user.Post("/login", Login)
		user.Get("/search", accessTokenVerifierMiddleware, SearchUsers)
		user.Patch("/{id}/pushtoken", accessTokenVerifierMiddleware, utils.UserIDMiddleware, AlterPushToken)
		user.Patch("/{id}/settings/notifications", accessTokenVerifierMiddleware, utils.UserIDMiddleware, AllowsNotifications)
		user.Patch("/{id}/profile", accessTokenVerifierMiddleware, utils.UserIDMiddleware, UpdateUserProfile)
		user.Get("/trips/history", accessTokenVerifierMiddleware, GetMyTripHistory)
		user.Delete("/{id}", accessTokenVerifierMiddleware, utils.UserIDMiddleware, DeleteAccount)
		user.Get("/{id}", accessTokenVerifierMiddleware, GetUser)
	}

	friends := app.Party("/api/friends", accessTokenVerifierMiddleware)
	{
		friends.Get("/", ListFriends)
		friends.Post("/request", SendFriendRequest)
		friends.Post("/request/cancel", CancelFriendRequest)
		friends.Post("/request/accept", AcceptFriendRequest)
		friends.Post("/request/decline", DeclineFriendRequest)
		friends.Post("/remove", RemoveFriend)
		friends.Post("/block", BlockUser)
		friends.Post("/unblock", UnblockUser)
	}

	trip := app.Party("/api/trip")
	{
		trip.Get("/search", SearchTrips)
		trip.Get("/", ListTrips)
		trip.Get("/{id:uint}", GetTrip)
		trip.Post("/", accessTokenVerifierMiddleware, CreateTrip)
		trip.Patch("/{id:uint}", accessTokenVerifierMiddleware, UpdateTrip)
		trip.Delete("/{id:uint}", accessTokenVerifierMiddleware, DeleteTrip)
	}

	groups := app.Party("/api/groups", accessTokenVerifierMiddleware)
	{
		groups.Get("/search", SearchGroups)
		groups.Get("/mine", ListMyGroups)
		groups.Post("/", CreateGroup)
		groups.Get("/{id:uint}", GetGroup)
		groups.Patch("/{id:uint}", UpdateGroup)
		groups.Delete("/{id:uint}", DeleteGroup)
		groups.Get("/{id:uint}/members", GetGroupMembers)
		groups.Get("/{id:uint}/pending", GetGroupPending)
		groups.Get("/{id:uint}/feed", GetGroupFeed)
		groups.Post("/{id:uint}/invite", InviteToGroup)
		groups.Post("/{id:uint}/invite/cancel", CancelInvite)
		groups.Post("/{id:uint}/invite/accept", AcceptInvite)
		groups.Post("/{id:uint}/join", JoinGroup)
		groups.Post("/{id:uint}/join/approve", ApproveJoin)
		groups.Post("/{id:uint}/join/cancel", CancelJoin)
		groups.Post("/{id:uint}/members/remove", RemoveMember)
	}

	post := app.Party("/api/post", accessTokenVerifierMiddleware)
	{
		post.Get("/feed", GetFeed)
		post.Get("/saved", GetSavedPosts)
		post.Post("/", CreatePost)
		post.Get("/{id:uint}", GetPost)
		post.Patch("/{id:uint}", UpdatePost)
		post.Delete("/{id:uint}", DeletePost)
		post.Post("/{id:uint}/like", LikePost)
		post.Post("/{id:uint}/unlike", UnlikePost)
		post.Post("/{id:uint}/save", SavePost)
		post.Post("/{id:uint}/unsave", UnsavePost)
		post.Post("/{id:uint}/share", SharePost)
		post.Post("/{id:uint}/comment", CreateComment)
		post.Delete("/comment/{commentID:uint}", DeleteComment)
		post.Post("/comment/{commentID:uint}/like", LikeComment)
		post.Post("/comment/{commentID:uint}/unlike", UnlikeComment)
	}

	notifications := app.Party("/api/notifications", accessTokenVerifierMiddleware)
	{
		notifications.Get("/", GetNotifications)
		notifications.Get("/unread", GetUnreadCount)
		notifications.Patch("/{id:uint}/read", MarkNotificationRead)
		notifications.Patch("/read-all", MarkAllNotificationsRead)
		notifications.Delete("/{id:uint}", DeleteNotification)
		notifications.Get("/settings", GetNotificationSettings)
		notifications.Put("/settings", UpdateNotificationSettings)
	}

	report := app.Party("/api/report", accessTokenVerifierMiddleware)
	{
		report.Post("/", CreateReport)
	}

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Get("/users", AdminListUsers)
		admin.Get("/users/{id:uint}", AdminGetUser)
		admin.Patch("/users/{id:uint}/role", AdminChangeRole)
		admin.Delete("/users/{id:uint}", AdminDeleteUser)
		admin.Delete("/groups/{id:uint}", AdminDeleteGroup)
		admin.Get("/reports", ListReports)
		admin.Patch("/reports/{id:uint}", ResolveReport)
		admin.Get("/stats", AdminStats)
		admin.Get("/audit", AdminListAuditLog)
	}

	if err := app.Build(); err != nil {
		t.Fatalf("building test app: %v", err)
	}
	return app
}

func signTestToken(t *testing.T, id uint, role string) string {
	t.Helper()
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), time.Hour)
	token, err := signer.Sign(utils.AccessToken{ID: id, Role: role})
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return string(token)
}

func createTestUser(t *testing.T, firstName string) models.User {
	t.Helper()
	user := models.User{
		FirstName: firstName,
		LastName:  "Test",
		Email:     firstName + "@example.com",
		Password:  "irrelevant",
		Role:      "user",
	}
	if err := storage.DB.Create(&user).Error; err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return user
}

func createTestTrip(t *testing.T, creatorID uint, start, end *time.Time) models.Trip {
	t.Helper()
	trip := models.Trip{
		CreatorID:  creatorID,
		Name:       "Alpine Loop",
		Location:   "Dolomites",
		Difficulty: "moderate",
		StartDate:  start,
		EndDate:    end,
	}
	if err := storage.DB.Create(&trip).Error; err != nil {
		t.Fatalf("creating test trip: %v", err)
	}
	return trip
}

// doJSON performs a request as the given user and returns the recorder.
func doJSON(t *testing.T, app *iris.Application, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

func reloadUser(t *testing.T, id uint) *models.User {
	t.Helper()
	var user models.User
	if err := storage.DB.First(&user, id).Error; err != nil {
		t.Fatalf("reloading user %d: %v", id, err)
	}
	return &user
}

func notificationsFor(t *testing.T, userID uint) []models.Notification {
	t.Helper()
	var rows []models.Notification
	storage.DB.Where("to_id = ?", userID).Order("created_at ASC").Find(&rows)
	return rows
}

func unreadCount(t *testing.T, userID uint) int {
	t.Helper()
	return reloadUser(t, userID).UnreadNotifications
}

func mustStatus(t *testing.T, resp *httptest.ResponseRecorder, want int) {
	t.Helper()
	if resp.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.Code, resp.Body.String())
	}
}
