package routes

import (
	"fmt"
	"time"

	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/utils"

	"github.com/kataras/iris/v12"
)

type UploadImageInput struct {
	Image string `json:"image" validate:"required"`
	Kind  string `json:"kind" validate:"omitempty,oneof=avatar post group trip"`
}

// UploadImage takes a base64 payload, stores it on the media host, and hands
// back the delivery URL for the client to attach wherever it is needed.
func UploadImage(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input UploadImageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	kind := input.Kind
	if kind == "" {
		kind = "post"
	}
	publicID := fmt.Sprintf("%s_%d_%d", kind, claims.ID, time.Now().UnixNano())

	result := storage.UploadBase64Image(input.Image, publicID)
	if result.SecureURL == "" {
		utils.CreateError(iris.StatusBadGateway, "Upload Failed",
			"The media host did not accept the image.", ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"url": result.SecureURL, "publicId": result.PublicID})
}

type DeleteImageInput struct {
	URL string `json:"url" validate:"required,url"`
}

// DeleteUploadedImage destroys a stored image by its delivery URL.
func DeleteUploadedImage(ctx iris.Context) {
	var input DeleteImageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !storage.DeleteImage(input.URL) {
		utils.CreateError(iris.StatusBadGateway, "Delete Failed",
			"The media host did not delete the image.", ctx)
		return
	}
	ctx.JSON(iris.Map{"deleted": true})
}
