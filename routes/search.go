package routes

import (
	"strings"

	"github.com/HikeMeet/HikeMeet-Backend-sub000/models"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/utils"

	"github.com/kataras/iris/v12"
)

const searchLimit = 25

func searchTerm(ctx iris.Context) (string, bool) {
	term := strings.TrimSpace(ctx.URLParam("q"))
	if term == "" {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Missing search term.", ctx)
		return "", false
	}
	return "%" + strings.ToLower(term) + "%", true
}

// SearchUsers matches on name and email, case-insensitive.
func SearchUsers(ctx iris.Context) {
	pattern, ok := searchTerm(ctx)
	if !ok {
		return
	}

	var users []models.User
	storage.DB.
		Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?",
			pattern, pattern, pattern).
		Limit(searchLimit).
		Find(&users)

	results := make([]iris.Map, 0, len(users))
	for i := range users {
		results = append(results, iris.Map{
			"id":        users[i].ID,
			"firstName": users[i].FirstName,
			"lastName":  users[i].LastName,
			"avatarURL": users[i].AvatarURL,
		})
	}
	ctx.JSON(iris.Map{"users": results})
}

// SearchGroups matches on name and description; private groups show up too,
// joining them still goes through the pending queue.
func SearchGroups(ctx iris.Context) {
	pattern, ok := searchTerm(ctx)
	if !ok {
		return
	}

	var groups []models.Group
	storage.DB.Preload("Trip").
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern).
		Limit(searchLimit).
		Find(&groups)

	ctx.JSON(iris.Map{"groups": groups})
}

// SearchTrips matches on name and location.
func SearchTrips(ctx iris.Context) {
	pattern, ok := searchTerm(ctx)
	if !ok {
		return
	}

	var trips []models.Trip
	storage.DB.
		Where("LOWER(name) LIKE ? OR LOWER(location) LIKE ?", pattern, pattern).
		Limit(searchLimit).
		Find(&trips)

	ctx.JSON(iris.Map{"trips": trips})
}
