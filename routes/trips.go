package routes

import (
	"time"

	"github.com/HikeMeet/HikeMeet-Backend-sub000/models"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/utils"

	"github.com/kataras/iris/v12"
)

type CreateTripInput struct {
	Name        string     `json:"name" validate:"required,max=100"`
	Location    string     `json:"location" validate:"max=200"`
	Description string     `json:"description"`
	Difficulty  string     `json:"difficulty" validate:"omitempty,oneof=easy moderate hard expert"`
	DistanceKm  float64    `json:"distanceKm" validate:"gte=0"`
	PhotoURL    string     `json:"photoURL" validate:"omitempty,url"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

func CreateTrip(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input CreateTripInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "End date precedes start date.", ctx)
		return
	}

	trip := models.Trip{
		CreatorID:   claims.ID,
		Name:        input.Name,
		Location:    input.Location,
		Description: input.Description,
		Difficulty:  input.Difficulty,
		DistanceKm:  input.DistanceKm,
		PhotoURL:    input.PhotoURL,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}
	if err := storage.DB.Create(&trip).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"trip": trip})
}

func GetTrip(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid trip id.", ctx)
		return
	}

	var trip models.Trip
	if err := storage.DB.Preload("Creator").Preload("Groups").First(&trip, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(iris.Map{"trip": trip})
}

func ListTrips(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	size := ctx.URLParamIntDefault("size", 20)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	q := storage.DB.Model(&models.Trip{})
	if difficulty := ctx.URLParam("difficulty"); difficulty != "" {
		q = q.Where("difficulty = ?", difficulty)
	}

	var trips []models.Trip
	q.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&trips)
	ctx.JSON(iris.Map{"trips": trips, "page": page})
}

type UpdateTripInput struct {
	Name        *string    `json:"name"`
	Location    *string    `json:"location"`
	Description *string    `json:"description"`
	Difficulty  *string    `json:"difficulty"`
	DistanceKm  *float64   `json:"distanceKm"`
	PhotoURL    *string    `json:"photoURL"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

func UpdateTrip(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid trip id.", ctx)
		return
	}

	var trip models.Trip
	if err := storage.DB.First(&trip, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if trip.CreatorID != claims.ID && claims.Role != "admin" {
		utils.CreateForbidden(ctx)
		return
	}

	var input UpdateTripInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Location != nil {
		updates["location"] = *input.Location
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Difficulty != nil {
		updates["difficulty"] = *input.Difficulty
	}
	if input.DistanceKm != nil {
		updates["distance_km"] = *input.DistanceKm
	}
	if input.PhotoURL != nil {
		updates["photo_url"] = *input.PhotoURL
	}
	if input.StartDate != nil {
		updates["start_date"] = *input.StartDate
	}
	if input.EndDate != nil {
		updates["end_date"] = *input.EndDate
	}
	if len(updates) == 0 {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Nothing to update.", ctx)
		return
	}

	if err := storage.DB.Model(&trip).Updates(updates).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"updated": true})
}

// DeleteTrip removes a trip and cascades into every group organized around
// it. Creator or admin only.
func DeleteTrip(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid trip id.", ctx)
		return
	}

	var trip models.Trip
	if err := storage.DB.First(&trip, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if trip.CreatorID != claims.ID && claims.Role != "admin" {
		utils.CreateForbidden(ctx)
		return
	}

	var groups []models.Group
	storage.DB.Where("trip_id = ?", trip.ID).Find(&groups)
	for i := range groups {
		unlock := utils.Locks.Lock(utils.GroupKey(groups[i].ID))
		deleteGroupCascade(&groups[i])
		unlock()
	}

	storage.DB.Delete(&trip)
	ctx.JSON(iris.Map{"deleted": true})
}
