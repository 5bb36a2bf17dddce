package routes

import (
	"net/http"
	"testing"

	"github.com/HikeMeet/HikeMeet-Backend-sub000/models"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"
)

func TestAdminUsersRBAC(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	user := createTestUser(t, "plain")
	admin := createTestUser(t, "boss")
	storage.DB.Model(&models.User{}).Where("id = ?", admin.ID).Update("role", "admin")

	// No token
	resp := doJSON(t, app, http.MethodGet, "/api/admin/users", "", nil)
	if resp.Code == http.StatusOK {
		t.Fatalf("expected non-200 without token, got %d", resp.Code)
	}

	// User role -> 403
	resp = doJSON(t, app, http.MethodGet, "/api/admin/users", signTestToken(t, user.ID, "user"), nil)
	mustStatus(t, resp, http.StatusForbidden)

	// Admin role -> 200
	resp = doJSON(t, app, http.MethodGet, "/api/admin/users", signTestToken(t, admin.ID, "admin"), nil)
	mustStatus(t, resp, http.StatusOK)
}

func TestAdminChangeRoleWritesAudit(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	user := createTestUser(t, "plain")
	admin := createTestUser(t, "boss")
	storage.DB.Model(&models.User{}).Where("id = ?", admin.ID).Update("role", "admin")
	adminToken := signTestToken(t, admin.ID, "admin")

	resp := doJSON(t, app, http.MethodPatch, "/api/admin/users/"+uintStr(user.ID)+"/role",
		adminToken, ChangeRoleInput{Role: "admin"})
	mustStatus(t, resp, http.StatusOK)

	if got := reloadUser(t, user.ID).Role; got != "admin" {
		t.Fatalf("role = %q, want admin", got)
	}

	var entry models.AuditLog
	if err := storage.DB.Where("action = ?", "user.role_change").First(&entry).Error; err != nil {
		t.Fatal("no audit entry for role change")
	}
	if entry.AdminUserID != admin.ID || entry.ResourceID != user.ID {
		t.Fatalf("audit entry = %+v", entry)
	}

	// Changing your own role is rejected
	resp = doJSON(t, app, http.MethodPatch, "/api/admin/users/"+uintStr(admin.ID)+"/role",
		adminToken, ChangeRoleInput{Role: "user"})
	mustStatus(t, resp, http.StatusConflict)
}

func TestAdminDeleteUserCascades(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	admin := createTestUser(t, "boss")
	storage.DB.Model(&models.User{}).Where("id = ?", admin.ID).Update("role", "admin")
	victim := createTestUser(t, "victim")
	friend := createTestUser(t, "friend")

	// Friendship both ways
	victimToken := signTestToken(t, victim.ID, "user")
	friendToken := signTestToken(t, friend.ID, "user")
	doJSON(t, app, http.MethodPost, "/api/friends/request", victimToken,
		FriendActionInput{UserID: friend.ID})
	doJSON(t, app, http.MethodPost, "/api/friends/request/accept", friendToken,
		FriendActionInput{UserID: victim.ID})

	post := createTestPost(t, victim, "soon to be gone")

	resp := doJSON(t, app, http.MethodDelete, "/api/admin/users/"+uintStr(victim.ID),
		signTestToken(t, admin.ID, "admin"), nil)
	mustStatus(t, resp, http.StatusOK)

	var userCount int64
	storage.DB.Unscoped().Model(&models.User{}).Where("id = ?", victim.ID).Count(&userCount)
	if userCount != 0 {
		t.Fatal("user row survived delete")
	}

	var postCount int64
	storage.DB.Unscoped().Model(&models.Post{}).Where("id = ?", post.ID).Count(&postCount)
	if postCount != 0 {
		t.Fatal("post survived user delete")
	}

	if _, found := reloadUser(t, friend.ID).FriendEntryFor(victim.ID); found {
		t.Fatal("friend still lists the deleted user")
	}
	if got := len(notificationsFor(t, friend.ID)); got != 0 {
		t.Fatalf("friend notifications = %d, want 0", got)
	}
	if got := unreadCount(t, friend.ID); got != 0 {
		t.Fatalf("friend unread = %d, want 0", got)
	}
}

func TestReportFlow(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	admin := createTestUser(t, "boss")
	storage.DB.Model(&models.User{}).Where("id = ?", admin.ID).Update("role", "admin")
	reporter := createTestUser(t, "reporter")
	offender := createTestUser(t, "offender")
	post := createTestPost(t, offender, "spam spam spam")

	resp := doJSON(t, app, http.MethodPost, "/api/report", signTestToken(t, reporter.ID, "user"),
		CreateReportInput{TargetType: "post", TargetID: post.ID, Reason: "spam"})
	mustStatus(t, resp, http.StatusCreated)

	adminNotifs := notificationsFor(t, admin.ID)
	if len(adminNotifs) != 1 || adminNotifs[0].Type != models.NotifReportCreated {
		t.Fatalf("admin notifications: %+v", adminNotifs)
	}

	var report models.Report
	storage.DB.First(&report)
	adminToken := signTestToken(t, admin.ID, "admin")

	resp = doJSON(t, app, http.MethodPatch, "/api/admin/reports/"+uintStr(report.ID),
		adminToken, ResolveReportInput{Status: "resolved"})
	mustStatus(t, resp, http.StatusOK)

	storage.DB.First(&report, report.ID)
	if report.Status != "resolved" || report.ResolvedBy == nil || *report.ResolvedBy != admin.ID {
		t.Fatalf("report after resolve = %+v", report)
	}

	// Already closed
	resp = doJSON(t, app, http.MethodPatch, "/api/admin/reports/"+uintStr(report.ID),
		adminToken, ResolveReportInput{Status: "dismissed"})
	mustStatus(t, resp, http.StatusConflict)
}
