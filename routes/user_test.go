package routes

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/HikeMeet/HikeMeet-Backend-sub000/models"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"
)

func TestRegisterAndLogin(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	input := RegisterUserInput{
		FirstName: "Alice",
		LastName:  "Climber",
		Email:     "Alice@Example.com",
		Password:  "supersecret",
	}
	resp := doJSON(t, app, http.MethodPost, "/api/user/register", "", input)
	mustStatus(t, resp, http.StatusOK)

	var out struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		Email        string `json:"email"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding register response: %v", err)
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		t.Fatal("register returned no token pair")
	}
	// Email is normalized to lower case
	if out.Email != "alice@example.com" {
		t.Fatalf("email = %q", out.Email)
	}

	// Duplicate email conflicts
	resp = doJSON(t, app, http.MethodPost, "/api/user/register", "", input)
	mustStatus(t, resp, http.StatusConflict)

	// Login with wrong password
	resp = doJSON(t, app, http.MethodPost, "/api/user/login", "",
		LoginUserInput{Email: "alice@example.com", Password: "wrong-password"})
	mustStatus(t, resp, http.StatusUnauthorized)

	// Login with correct password
	resp = doJSON(t, app, http.MethodPost, "/api/user/login", "",
		LoginUserInput{Email: "alice@example.com", Password: "supersecret"})
	mustStatus(t, resp, http.StatusOK)

	// Password hash never leaks
	var user models.User
	storage.DB.Where("email = ?", "alice@example.com").First(&user)
	if user.Password == "supersecret" {
		t.Fatal("password stored in plain text")
	}
}

func TestAlterPushToken(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	alice := createTestUser(t, "alice")
	token := signTestToken(t, alice.ID, "user")
	path := "/api/user/" + uintStr(alice.ID) + "/pushtoken"

	resp := doJSON(t, app, http.MethodPatch, path, token,
		AlterPushTokenInput{Token: "ExponentPushToken[abc]", Operation: "add"})
	mustStatus(t, resp, http.StatusOK)

	// Adding the same token twice keeps one copy
	doJSON(t, app, http.MethodPatch, path, token,
		AlterPushTokenInput{Token: "ExponentPushToken[abc]", Operation: "add"})
	if got := reloadUser(t, alice.ID).PushTokenList(); len(got) != 1 {
		t.Fatalf("push tokens = %v, want one entry", got)
	}

	resp = doJSON(t, app, http.MethodPatch, path, token,
		AlterPushTokenInput{Token: "ExponentPushToken[abc]", Operation: "remove"})
	mustStatus(t, resp, http.StatusOK)
	if got := reloadUser(t, alice.ID).PushTokenList(); len(got) != 0 {
		t.Fatalf("push tokens after remove = %v, want empty", got)
	}

	// Acting on someone else's id is rejected
	bob := createTestUser(t, "bob")
	resp = doJSON(t, app, http.MethodPatch, "/api/user/"+uintStr(bob.ID)+"/pushtoken", token,
		AlterPushTokenInput{Token: "ExponentPushToken[abc]", Operation: "add"})
	mustStatus(t, resp, http.StatusForbidden)
}

func TestDeleteAccountCascades(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	token := signTestToken(t, alice.ID, "user")

	// Only your own account
	resp := doJSON(t, app, http.MethodDelete, "/api/user/"+uintStr(bob.ID), token, nil)
	mustStatus(t, resp, http.StatusForbidden)

	post := createTestPost(t, alice, "last words")

	resp = doJSON(t, app, http.MethodDelete, "/api/user/"+uintStr(alice.ID), token, nil)
	mustStatus(t, resp, http.StatusOK)

	var userCount int64
	storage.DB.Unscoped().Model(&models.User{}).Where("id = ?", alice.ID).Count(&userCount)
	if userCount != 0 {
		t.Fatal("user row survived self delete")
	}
	var postCount int64
	storage.DB.Unscoped().Model(&models.Post{}).Where("id = ?", post.ID).Count(&postCount)
	if postCount != 0 {
		t.Fatal("post survived self delete")
	}
}

func TestSearchUsers(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	alice := createTestUser(t, "alice")
	createTestUser(t, "bob")
	token := signTestToken(t, alice.ID, "user")

	resp := doJSON(t, app, http.MethodGet, "/api/user/search?q=ali", token, nil)
	mustStatus(t, resp, http.StatusOK)

	var out struct {
		Users []struct {
			FirstName string `json:"firstName"`
		} `json:"users"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding search response: %v", err)
	}
	if len(out.Users) != 1 || out.Users[0].FirstName != "alice" {
		t.Fatalf("search results: %+v", out.Users)
	}

	// Empty term is a bad request
	resp = doJSON(t, app, http.MethodGet, "/api/user/search", token, nil)
	mustStatus(t, resp, http.StatusBadRequest)
}
