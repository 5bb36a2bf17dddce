package storage

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Cloudinary configuration via environment variables:
// CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY, CLOUDINARY_API_SECRET,
// CLOUDINARY_FOLDER (optional)

// UploadResult is what the media host hands back for a stored image.
type UploadResult struct {
	SecureURL string `json:"secureUrl"`
	PublicID  string `json:"publicId"`
}

func cloudinaryCreds() (cloudName, apiKey, apiSecret string, ok bool) {
	cloudName = os.Getenv("CLOUDINARY_CLOUD_NAME")
	apiKey = os.Getenv("CLOUDINARY_API_KEY")
	apiSecret = os.Getenv("CLOUDINARY_API_SECRET")
	ok = cloudName != "" && apiKey != "" && apiSecret != ""
	return
}

func signParams(publicID, timestamp, apiSecret string) string {
	signatureString := fmt.Sprintf("public_id=%s&timestamp=%s%s", publicID, timestamp, apiSecret)
	return fmt.Sprintf("%x", sha1.Sum([]byte(signatureString)))
}

// UploadBase64Image pushes a base64 data-URI (or bare base64 payload) to
// Cloudinary under the given public id and returns the stored URL. A zero
// UploadResult means the upload failed; callers treat that as best-effort.
func UploadBase64Image(base64ImageSrc string, publicID string) UploadResult {
	if base64ImageSrc == "" {
		return UploadResult{}
	}

	payload := base64ImageSrc
	if i := strings.Index(base64ImageSrc, ","); i != -1 {
		payload = base64ImageSrc[i+1:]
	}

	cloudName, apiKey, apiSecret, ok := cloudinaryCreds()
	if !ok {
		log.Println("cloudinary: missing credentials, skipping upload")
		return UploadResult{}
	}

	finalPublicID := publicID
	if folder := os.Getenv("CLOUDINARY_FOLDER"); folder != "" {
		finalPublicID = folder + "/" + publicID
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())

	form := url.Values{}
	form.Add("file", "data:image/jpeg;base64,"+payload)
	form.Add("api_key", apiKey)
	form.Add("public_id", finalPublicID)
	form.Add("timestamp", timestamp)
	form.Add("signature", signParams(finalPublicID, timestamp, apiSecret))

	endpoint := "https://api.cloudinary.com/v1_1/" + cloudName + "/image/upload"
	res, err := http.Post(endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		log.Println("cloudinary: upload request failed:", err)
		return UploadResult{}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil || res.StatusCode != http.StatusOK {
		log.Printf("cloudinary: upload failed, status %d", res.StatusCode)
		return UploadResult{}
	}

	var cloudRes struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
		PublicID  string `json:"public_id"`
		Error     struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &cloudRes); err != nil {
		log.Println("cloudinary: bad upload response:", err)
		return UploadResult{}
	}
	if cloudRes.Error.Message != "" {
		log.Println("cloudinary: upload error:", cloudRes.Error.Message)
		return UploadResult{}
	}

	urlOut := cloudRes.SecureURL
	if urlOut == "" {
		urlOut = cloudRes.URL
	}
	return UploadResult{SecureURL: urlOut, PublicID: cloudRes.PublicID}
}

// PublicIDFromURL extracts the Cloudinary public id from a delivery URL.
// URL format: https://res.cloudinary.com/{cloud}/image/upload/v{n}/{public_id}.{ext}
func PublicIDFromURL(imageURL string) string {
	if !strings.Contains(imageURL, "res.cloudinary.com") {
		return ""
	}
	parts := strings.Split(imageURL, "/")
	last := parts[len(parts)-1]
	publicID := strings.Split(last, ".")[0]
	if folder := os.Getenv("CLOUDINARY_FOLDER"); folder != "" {
		publicID = folder + "/" + publicID
	}
	return publicID
}

// DeleteImage destroys a stored image by its delivery URL. Failures are
// logged, never retried; cascade callers keep going.
func DeleteImage(imageURL string) bool {
	publicID := PublicIDFromURL(imageURL)
	if publicID == "" {
		return false
	}

	cloudName, apiKey, apiSecret, ok := cloudinaryCreds()
	if !ok {
		log.Println("cloudinary: missing credentials, skipping delete")
		return false
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())

	form := url.Values{}
	form.Add("public_id", publicID)
	form.Add("api_key", apiKey)
	form.Add("timestamp", timestamp)
	form.Add("signature", signParams(publicID, timestamp, apiSecret))

	endpoint := "https://api.cloudinary.com/v1_1/" + cloudName + "/image/destroy"
	res, err := http.Post(endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		log.Println("cloudinary: destroy request failed:", err)
		return false
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil || res.StatusCode != http.StatusOK {
		log.Printf("cloudinary: destroy failed, status %d", res.StatusCode)
		return false
	}

	var deleteRes struct {
		Result string `json:"result"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &deleteRes); err != nil {
		return false
	}
	if deleteRes.Error.Message != "" || deleteRes.Result != "ok" {
		log.Println("cloudinary: destroy not ok:", deleteRes.Result, deleteRes.Error.Message)
		return false
	}
	return true
}
