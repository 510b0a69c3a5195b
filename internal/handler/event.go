package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/slotswap/slotswap-go/internal/ics"
	"github.com/slotswap/slotswap-go/internal/middleware"
	"github.com/slotswap/slotswap-go/internal/model"
	"github.com/slotswap/slotswap-go/internal/service"
)

// EventHandler handles HTTP requests for calendar events.
type EventHandler struct {
	service *service.EventService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{service: svc}
}

// HandleCreate handles POST /api/v1/events requests.
func (h *EventHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(codeNotAuthorized, "unauthorized"))
		return
	}

	var req model.CreateEventRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleList handles GET /api/v1/events requests.
func (h *EventHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(codeNotAuthorized, "unauthorized"))
		return
	}

	events, err := h.service.ListOwn(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// HandleGet handles GET /api/v1/events/{event_id} requests.
func (h *EventHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(codeNotAuthorized, "unauthorized"))
		return
	}

	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Get(r.Context(), userID, eventID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleUpdate handles PUT and PATCH /api/v1/events/{event_id} requests.
// PUT requires the core fields; PATCH applies whatever is present.
func (h *EventHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(codeNotAuthorized, "unauthorized"))
		return
	}

	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	var req model.UpdateEventRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if r.Method == http.MethodPut {
		if req.Title == nil || req.StartTime == nil || req.EndTime == nil {
			writeJSON(w, http.StatusBadRequest,
				errorResponse(codeValidation, "title, start_time and end_time are required"))
			return
		}
	}

	resp, err := h.service.Update(r.Context(), userID, eventID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleDelete handles DELETE /api/v1/events/{event_id} requests.
func (h *EventHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(codeNotAuthorized, "unauthorized"))
		return
	}

	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, eventID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleMarketplace handles GET /api/v1/marketplace requests.
func (h *EventHandler) HandleMarketplace(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(codeNotAuthorized, "unauthorized"))
		return
	}

	events, err := h.service.Marketplace(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// HandleExportICS handles GET /api/v1/events/export.ics requests, serving
// the caller's calendar as an iCalendar feed.
func (h *EventHandler) HandleExportICS(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(codeNotAuthorized, "unauthorized"))
		return
	}

	events, err := h.service.OwnEvents(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="slotswap.ics"`)
	if err := ics.Write(w, events, time.Now()); err != nil {
		// Headers are already out; nothing sane left to send.
		return
	}
}

func eventIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "event_id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse(codeValidation, "invalid event id"))
		return 0, false
	}
	return id, true
}
