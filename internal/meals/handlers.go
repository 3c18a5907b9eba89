package meals

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fdg312/fittrack/internal/blob"
	"github.com/fdg312/fittrack/internal/userctx"
)

// Handler handles HTTP requests for the meal log.
type Handler struct {
	service     *Service
	blobStore   blob.Store
	maxUpload   int64
	allowedMime map[string]bool
}

// NewHandler creates a new meals handler. blobStore may be nil, in which case
// the photo endpoints answer 503.
func NewHandler(service *Service, blobStore blob.Store, maxUploadMB int, allowedMime string) *Handler {
	allowed := map[string]bool{}
	for _, mime := range strings.Split(allowedMime, ",") {
		mime = strings.TrimSpace(strings.ToLower(mime))
		if mime != "" {
			allowed[mime] = true
		}
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &Handler{
		service:     service,
		blobStore:   blobStore,
		maxUpload:   int64(maxUploadMB) * 1024 * 1024,
		allowedMime: allowed,
	}
}

// HandleList handles GET /v1/meals
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	resp, err := h.service.List(r.Context(), ownerUserID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSummary handles GET /v1/meals/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	resp, err := h.service.Summary(r.Context(), ownerUserID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleAdd handles POST /v1/meals
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req AddMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "invalid JSON body")
		return
	}

	meal, err := h.service.AddMeal(r.Context(), ownerUserID, &req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, meal)
}

// HandleAddManual handles POST /v1/meals/manual
func (h *Handler) HandleAddManual(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req AddManualCaloriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "invalid JSON body")
		return
	}

	meal, err := h.service.AddManualCalories(r.Context(), ownerUserID, &req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, meal)
}

// HandleDelete handles DELETE /v1/meals/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	mealID := r.PathValue("id")
	if mealID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "meal id is required")
		return
	}

	if err := h.service.DeleteMeal(r.Context(), ownerUserID, mealID); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleClear handles DELETE /v1/meals
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	if err := h.service.ClearHistory(r.Context(), ownerUserID); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUploadPhoto handles POST /v1/meals/{id}/photo
func (h *Handler) HandleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	if h.blobStore == nil {
		writeError(w, http.StatusServiceUnavailable, "blob_unavailable", "photo storage is not configured")
		return
	}

	mealID := r.PathValue("id")
	if mealID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "meal id is required")
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if len(h.allowedMime) > 0 && !h.allowedMime[contentType] {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "content type is not allowed")
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, h.maxUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "failed to read request body")
		return
	}
	if int64(len(data)) > h.maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "photo exceeds upload limit")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_payload", "photo body is empty")
		return
	}

	// Verify the meal exists before paying for the upload.
	if _, err := h.service.GetMeal(r.Context(), ownerUserID, mealID); err != nil {
		h.handleError(w, err)
		return
	}

	photoKey := fmt.Sprintf("meals/%s/%s%s", ownerUserID, mealID, extensionForMime(contentType))
	if _, err := h.blobStore.PutObject(r.Context(), photoKey, data, contentType); err != nil {
		writeError(w, http.StatusBadGateway, "blob_error", "failed to store photo")
		return
	}

	if err := h.service.AttachPhoto(r.Context(), ownerUserID, mealID, photoKey); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PhotoResponse{MealID: mealID, PhotoKey: photoKey})
}

// HandleGetPhotoURL handles GET /v1/meals/{id}/photo
func (h *Handler) HandleGetPhotoURL(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	if h.blobStore == nil {
		writeError(w, http.StatusServiceUnavailable, "blob_unavailable", "photo storage is not configured")
		return
	}

	mealID := r.PathValue("id")
	meal, err := h.service.GetMeal(r.Context(), ownerUserID, mealID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if meal.PhotoKey == nil || *meal.PhotoKey == "" {
		writeError(w, http.StatusNotFound, "photo_not_found", "meal has no photo")
		return
	}

	url, err := h.blobStore.PresignGet(r.Context(), *meal.PhotoKey, 600)
	if err != nil {
		writeError(w, http.StatusBadGateway, "blob_error", "failed to presign photo url")
		return
	}
	writeJSON(w, http.StatusOK, PhotoURLResponse{MealID: mealID, URL: url})
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrMealNotFound):
		writeError(w, http.StatusNotFound, "meal_not_found", "meal not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func extensionForMime(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/heic":
		return ".heic"
	default:
		return ""
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
