package routes

import (
	"time"

	"github.com/HikeMeet/HikeMeet-Backend-sub000/models"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/services"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/utils"

	"github.com/kataras/iris/v12"
)

type CreateReportInput struct {
	TargetType string `json:"targetType" validate:"required,oneof=user group post comment"`
	TargetID   uint   `json:"targetID" validate:"required"`
	Reason     string `json:"reason" validate:"required,max=2000"`
}

// CreateReport files a report and pings every admin.
func CreateReport(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input CreateReportInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !reportTargetExists(input.TargetType, input.TargetID) {
		utils.CreateNotFound(ctx)
		return
	}

	report := models.Report{
		ReporterID: claims.ID,
		TargetType: input.TargetType,
		TargetID:   input.TargetID,
		Reason:     input.Reason,
		Status:     "open",
	}
	if err := storage.DB.Create(&report).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ns := services.NewNotificationService()
	var admins []models.User
	storage.DB.Where("role = ?", "admin").Find(&admins)
	for i := range admins {
		ns.Notify(admins[i].ID, &claims.ID, models.NotifReportCreated,
			"New Report", "A "+input.TargetType+" has been reported",
			models.RefUser, claims.ID,
			map[string]string{"reportID": uintStr(report.ID)})
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"report": report})
}

func reportTargetExists(targetType string, targetID uint) bool {
	var count int64
	switch targetType {
	case "user":
		storage.DB.Model(&models.User{}).Where("id = ?", targetID).Count(&count)
	case "group":
		storage.DB.Model(&models.Group{}).Where("id = ?", targetID).Count(&count)
	case "post":
		storage.DB.Model(&models.Post{}).Where("id = ?", targetID).Count(&count)
	case "comment":
		storage.DB.Model(&models.Comment{}).Where("id = ?", targetID).Count(&count)
	}
	return count > 0
}

// ListReports pages reports for the moderation panel; admin only via routing.
func ListReports(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	size := ctx.URLParamIntDefault("size", 20)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	q := storage.DB.Model(&models.Report{})
	if status := ctx.URLParam("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	q.Count(&total)

	var reports []models.Report
	q.Preload("Reporter").Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&reports)

	utils.JSONPage(ctx, reports, page, size, total)
}

type ResolveReportInput struct {
	Status string `json:"status" validate:"required,oneof=resolved dismissed"`
}

// ResolveReport closes a report as resolved or dismissed.
func ResolveReport(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid report id.", ctx)
		return
	}

	var input ResolveReportInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var report models.Report
	if err := storage.DB.First(&report, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if report.Status != "open" {
		utils.CreateConflict(ctx, "Report is already closed.")
		return
	}

	now := time.Now()
	resolverID := claims.ID
	updates := map[string]interface{}{
		"status":      input.Status,
		"resolved_by": resolverID,
		"resolved_at": now,
	}
	if err := storage.DB.Model(&report).Updates(updates).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "report."+input.Status, "report", report.ID, report, nil)
	ctx.JSON(iris.Map{"resolved": true})
}
