// internal/service/http.go
package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	apperrors "gym-notification-engine/internal/common/errors"
	"gym-notification-engine/internal/common/logger"
	"gym-notification-engine/internal/engine"
	"gym-notification-engine/internal/models"
	"gym-notification-engine/internal/store"
)

// recipientHeader carries the authenticated member id. Authentication itself
// happens at the gateway in front of this service.
const recipientHeader = "X-Recipient-ID"

// Handler exposes the notification service over HTTP.
type Handler struct {
	svc    *NotificationService
	logger logger.Logger
}

func NewHandler(svc *NotificationService, log logger.Logger) *Handler {
	return &Handler{svc: svc, logger: log}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/push/public-key", h.publicKey)
	mux.HandleFunc("POST /api/push/subscriptions", h.subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions", h.unsubscribe)
	mux.HandleFunc("GET /api/notifications", h.list)
	mux.HandleFunc("GET /api/notifications/unread-count", h.unreadCount)
	mux.HandleFunc("POST /api/notifications/read", h.markRead)
	mux.HandleFunc("POST /api/notifications/send", h.send)
	mux.HandleFunc("POST /api/notifications/bulk", h.sendBulk)
}

func (h *Handler) publicKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.svc.VAPIDPublicKey()})
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := h.recipient(w, r)
	if !ok {
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_BODY", "malformed JSON body"))
		return
	}

	sub, err := h.svc.RegisterSubscription(r.Context(), recipientID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := h.recipient(w, r)
	if !ok {
		return
	}

	endpoint := r.URL.Query().Get("endpoint")
	if endpoint == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_BODY", "endpoint query parameter is required"))
		return
	}

	if err := h.svc.UnregisterSubscription(r.Context(), recipientID, endpoint); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := h.recipient(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	filter := store.ListFilter{
		Category: models.Category(q.Get("category")),
		Status:   models.Status(q.Get("status")),
	}

	notifications, total, err := h.svc.ListNotifications(r.Context(), recipientID, page, pageSize, filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"total":         total,
	})
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := h.recipient(w, r)
	if !ok {
		return
	}

	count, err := h.svc.UnreadCount(r.Context(), recipientID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := h.recipient(w, r)
	if !ok {
		return
	}

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_BODY", "malformed JSON body"))
		return
	}

	if err := h.svc.MarkRead(r.Context(), recipientID, req.IDs); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecipientID string            `json:"recipientId"`
		Title       string            `json:"title"`
		Message     string            `json:"message"`
		Category    models.Category   `json:"category"`
		Priority    models.Priority   `json:"priority"`
		Data        map[string]string `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_BODY", "malformed JSON body"))
		return
	}
	if req.RecipientID == "" || req.Title == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_BODY", "recipientId, title and message are required"))
		return
	}

	n, res, err := h.svc.SendDirect(r.Context(), req.RecipientID, req.Title, req.Message, req.Category, req.Priority, req.Data)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"notification": n,
		"succeeded":    res.Succeeded,
		"failed":       res.Failed,
	})
}

func (h *Handler) sendBulk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecipientIDs []string           `json:"recipientIds"`
		Content      engine.BulkContent `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_BODY", "malformed JSON body"))
		return
	}
	if len(req.RecipientIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_BODY", "recipientIds must not be empty"))
		return
	}

	result := h.svc.SendBulk(r.Context(), req.RecipientIDs, req.Content)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) recipient(w http.ResponseWriter, r *http.Request) (string, bool) {
	recipientID := r.Header.Get(recipientHeader)
	if recipientID == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody("MISSING_RECIPIENT", "recipient header is required"))
		return "", false
	}
	return recipientID, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		writeJSON(w, statusFor(stdErr.Code), map[string]interface{}{
			"code":    stdErr.Code,
			"message": stdErr.Message,
			"details": stdErr.Details,
		})
		return
	}
	h.logger.Error("request failed", map[string]interface{}{"error": err.Error()})
	writeJSON(w, http.StatusInternalServerError, errorBody("INTERNAL", "internal error"))
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeInvalidSubscription:
		return http.StatusBadRequest
	case apperrors.ErrCodeAccessDenied:
		return http.StatusForbidden
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeNoActiveSubscriptions:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(code, message string) map[string]string {
	return map[string]string{"code": code, "message": message}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
