package services

import (
	"testing"
	"time"

	"github.com/HikeMeet/HikeMeet-Backend-sub000/models"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"

	"golang.org/x/exp/slices"
)

func createGroupWithTrip(t *testing.T, creator models.User, status string, start, end time.Time) models.Group {
	t.Helper()
	trip := models.Trip{
		CreatorID: creator.ID,
		Name:      "Ridge Traverse",
		StartDate: &start,
		EndDate:   &end,
	}
	if err := storage.DB.Create(&trip).Error; err != nil {
		t.Fatalf("creating trip: %v", err)
	}
	group := models.Group{
		TripID:    trip.ID,
		CreatorID: creator.ID,
		Name:      "Traverse Crew",
		Privacy:   "public",
		Status:    status,
	}
	if err := storage.DB.Create(&group).Error; err != nil {
		t.Fatalf("creating group: %v", err)
	}
	storage.DB.Create(&models.GroupMember{
		GroupID: group.ID, UserID: creator.ID,
		Role: models.GroupRoleAdmin, JoinedAt: time.Now(),
	})
	return group
}

func groupStatus(t *testing.T, id uint) string {
	t.Helper()
	var group models.Group
	if err := storage.DB.First(&group, id).Error; err != nil {
		t.Fatalf("reloading group %d: %v", id, err)
	}
	return group.Status
}

func TestSweepActivatesStartedGroups(t *testing.T) {
	setupTestDB(t)
	ls := NewLifecycleService()

	alice := createTestUser(t, "alice")
	now := time.Now()

	started := createGroupWithTrip(t, alice, models.GroupStatusPlanned,
		now.Add(-time.Hour), now.Add(24*time.Hour))
	future := createGroupWithTrip(t, alice, models.GroupStatusPlanned,
		now.Add(24*time.Hour), now.Add(48*time.Hour))

	if err := ls.Sweep(now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if got := groupStatus(t, started.ID); got != models.GroupStatusActive {
		t.Fatalf("started group status = %q, want active", got)
	}
	if got := groupStatus(t, future.ID); got != models.GroupStatusPlanned {
		t.Fatalf("future group status = %q, want planned", got)
	}
}

func TestSweepCompletesEndedGroupsAndBackfills(t *testing.T) {
	setupTestDB(t)
	ls := NewLifecycleService()

	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	now := time.Now()

	group := createGroupWithTrip(t, alice, models.GroupStatusActive,
		now.Add(-48*time.Hour), now.Add(-time.Hour))
	storage.DB.Create(&models.GroupMember{
		GroupID: group.ID, UserID: bob.ID,
		Role: models.GroupRoleCompanion, JoinedAt: now,
	})

	if err := ls.Sweep(now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if got := groupStatus(t, group.ID); got != models.GroupStatusCompleted {
		t.Fatalf("group status = %q, want completed", got)
	}

	for _, userID := range []uint{alice.ID, bob.ID} {
		var user models.User
		storage.DB.First(&user, userID)
		if !slices.Contains(user.CompletedTripList(), group.TripID) {
			t.Fatalf("user %d missing trip in history", userID)
		}

		var n models.Notification
		if err := storage.DB.Where("to_id = ? AND type = ?", userID, models.NotifTripCompleted).
			First(&n).Error; err != nil {
			t.Fatalf("user %d has no trip_completed notification", userID)
		}
	}

	// A second sweep must not duplicate the history entry
	if err := ls.Sweep(now); err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	var user models.User
	storage.DB.First(&user, bob.ID)
	seen := 0
	for _, id := range user.CompletedTripList() {
		if id == group.TripID {
			seen++
		}
	}
	if seen != 1 {
		t.Fatalf("trip appears %d times in history, want 1", seen)
	}
}
