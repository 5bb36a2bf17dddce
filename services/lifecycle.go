package services

import (
	"context"
	"log"
	"time"

	"github.com/HikeMeet/HikeMeet-Backend-sub000/models"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"

	"golang.org/x/exp/slices"
)

// LifecycleService runs the periodic group status sweep: planned groups go
// active when their trip starts, active groups complete when it ends, and
// completed trips are back-filled into each member's history.
type LifecycleService struct {
	Interval      time.Duration
	notifications *NotificationService
}

func NewLifecycleService() *LifecycleService {
	return &LifecycleService{
		Interval:      10 * time.Minute,
		notifications: NewNotificationService(),
	}
}

// Run loops until ctx is cancelled. Cancellation is only observed between
// iterations; a sweep in flight finishes its pass.
func (ls *LifecycleService) Run(ctx context.Context) {
	ticker := time.NewTicker(ls.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("lifecycle: sweep stopped")
			return
		case <-ticker.C:
			if err := ls.Sweep(time.Now()); err != nil {
				log.Println("lifecycle: sweep failed:", err)
			}
		}
	}
}

// Sweep advances every group whose trip dates have passed.
func (ls *LifecycleService) Sweep(now time.Time) error {
	if err := ls.activatePlanned(now); err != nil {
		return err
	}
	return ls.completeActive(now)
}

func (ls *LifecycleService) activatePlanned(now time.Time) error {
	var groups []models.Group
	if err := storage.DB.Preload("Trip").
		Where("status = ?", models.GroupStatusPlanned).
		Find(&groups).Error; err != nil {
		return err
	}

	for i := range groups {
		g := &groups[i]
		if g.Trip.StartDate == nil || g.Trip.StartDate.After(now) {
			continue
		}
		if err := storage.DB.Model(g).Update("status", models.GroupStatusActive).Error; err != nil {
			log.Printf("lifecycle: activate group %d failed: %v", g.ID, err)
		}
	}
	return nil
}

func (ls *LifecycleService) completeActive(now time.Time) error {
	var groups []models.Group
	if err := storage.DB.Preload("Trip").Preload("Members").
		Where("status = ?", models.GroupStatusActive).
		Find(&groups).Error; err != nil {
		return err
	}

	for i := range groups {
		g := &groups[i]
		if g.Trip.EndDate == nil || g.Trip.EndDate.After(now) {
			continue
		}
		if err := storage.DB.Model(g).Update("status", models.GroupStatusCompleted).Error; err != nil {
			log.Printf("lifecycle: complete group %d failed: %v", g.ID, err)
			continue
		}

		for _, member := range g.Members {
			ls.backfillTrip(member.UserID, g)
		}
	}
	return nil
}

// backfillTrip appends the trip to the member's history and tells them the
// hike is done. Failures are logged; the sweep keeps going.
func (ls *LifecycleService) backfillTrip(userID uint, g *models.Group) {
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		log.Printf("lifecycle: member %d not found: %v", userID, err)
		return
	}

	trips := user.CompletedTripList()
	if !slices.Contains(trips, g.TripID) {
		user.SetCompletedTripList(append(trips, g.TripID))
		if err := storage.DB.Model(&user).Update("completed_trips", user.CompletedTrips).Error; err != nil {
			log.Printf("lifecycle: history back-fill for user %d failed: %v", userID, err)
		}
	}

	_, err := ls.notifications.Notify(userID, nil, models.NotifTripCompleted,
		"Trip Completed", "Your hike \""+g.Trip.Name+"\" is complete. Nice work out there!",
		models.RefTrip, g.TripID, map[string]string{"groupID": itoa(g.ID)})
	if err != nil {
		log.Printf("lifecycle: trip_completed notify for user %d failed: %v", userID, err)
	}
}
